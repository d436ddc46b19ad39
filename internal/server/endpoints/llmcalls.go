package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/llmcall"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// ListLLMCallsEndpoint handles GET /api/documents/{id}/calls.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/calls", e.handler
}

func (e *ListLLMCallsEndpoint) RequiresInit() bool { return true }

func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	calls, err := st.ListCalls(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, calls)
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "llmcalls <document-id>",
		Short: "List recorded LLM calls for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var calls []llmcall.Call
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0]+"/calls", &calls); err != nil {
				return err
			}
			return api.Output(calls)
		},
	}
}
