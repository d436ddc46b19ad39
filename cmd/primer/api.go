package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Primer server via HTTP.

These commands require a running server (primer serve).
Use --server to specify a custom server URL.

Examples:
  primer api health                   # Check server health
  primer api documents list           # List all documents
  primer api units list <doc-id>      # List extracted units`,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Document management commands",
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Pipeline execution commands",
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Guideline unit inspection and review commands",
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Topic and page index commands",
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Background job commands",
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Embedded prompt inspection commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	for _, ep := range endpoints.DocumentCommands() {
		documentsCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.ProcessCommands() {
		processCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.UnitCommands() {
		unitsCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.IndexCommands() {
		indexCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.JobCommands() {
		jobsCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.PromptCommands() {
		promptsCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(documentsCmd)
	apiCmd.AddCommand(processCmd)
	apiCmd.AddCommand(unitsCmd)
	apiCmd.AddCommand(indexCmd)
	apiCmd.AddCommand(jobsCmd)
	apiCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(apiCmd)
}
