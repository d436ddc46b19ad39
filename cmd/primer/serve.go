package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/config"
	"github.com/jackzampolin/primer/internal/home"
	"github.com/jackzampolin/primer/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Primer server",
	Long: `Start the Primer HTTP server.

The server opens the embedded store under the primer home directory and
serves the extraction API. Configuration is hot-reloaded on change.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes store status)

Examples:
  primer serve                    # Start on default port 8080
  primer serve --port 3000        # Start on custom port
  primer serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load config with hot reload
		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cm.WatchConfig()

		// Flags override the configured listen address
		host, port := serveHost, servePort
		if host == "" {
			host = cm.Get().Server.Host
		}
		if port == "" {
			port = cm.Get().Server.Port
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: cm,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
