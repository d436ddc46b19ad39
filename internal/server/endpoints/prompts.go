package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// PromptInfo is the API view of an embedded prompt.
type PromptInfo struct {
	Key         string   `json:"key"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash"`
	Text        string   `json:"text,omitempty"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptsFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not initialized")
		return
	}

	all := resolver.All()
	infos := make([]PromptInfo, 0, len(all))
	for _, p := range all {
		infos = append(infos, PromptInfo{
			Key:         p.Key,
			Description: p.Description,
			Variables:   p.Variables,
			Hash:        p.Hash,
		})
	}

	writeJSON(w, http.StatusOK, infos)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var infos []PromptInfo
			if err := client.Get(cmd.Context(), "/api/prompts", &infos); err != nil {
				return err
			}
			return api.Output(infos)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{key}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{key}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "prompt key is required")
		return
	}

	resolver := svcctx.PromptsFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not initialized")
		return
	}

	p, err := resolver.Get(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PromptInfo{
		Key:         p.Key,
		Description: p.Description,
		Variables:   p.Variables,
		Hash:        p.Hash,
		Text:        p.Text,
	})
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a prompt including its template text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var info PromptInfo
			if err := client.Get(cmd.Context(), "/api/prompts/"+args[0], &info); err != nil {
				return err
			}
			fmt.Printf("Key:  %s\n", info.Key)
			if info.Description != "" {
				fmt.Printf("Desc: %s\n", info.Description)
			}
			fmt.Printf("Hash: %s\n", info.Hash)
			fmt.Printf("Vars: %v\n\n", info.Variables)
			fmt.Println(info.Text)
			return nil
		},
	}
}
