package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// GetIndexEndpoint handles GET /api/documents/{id}/index.
type GetIndexEndpoint struct{}

func (e *GetIndexEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/index", e.handler
}

func (e *GetIndexEndpoint) RequiresInit() bool { return true }

func (e *GetIndexEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	idx, err := st.GetIndex(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "index not found")
		return
	}

	writeJSON(w, http.StatusOK, idx)
}

func (e *GetIndexEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Get the hierarchical topic index of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var idx guideline.Index
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0]+"/index", &idx); err != nil {
				return err
			}
			return api.Output(idx)
		},
	}
}

// RebuildIndexEndpoint handles POST /api/documents/{id}/index/rebuild.
type RebuildIndexEndpoint struct{}

func (e *RebuildIndexEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/index/rebuild", e.handler
}

func (e *RebuildIndexEndpoint) RequiresInit() bool { return true }

func (e *RebuildIndexEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	p := svcctx.PipelineFrom(r.Context())
	idx, err := p.RebuildIndex(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, idx)
}

func (e *RebuildIndexEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <document-id>",
		Short: "Rebuild the topic index from current units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var idx guideline.Index
			if err := client.Post(cmd.Context(), "/api/documents/"+args[0]+"/index/rebuild", nil, &idx); err != nil {
				return err
			}
			return api.Output(idx)
		},
	}
}

// GetPageIndexEndpoint handles GET /api/documents/{id}/pageindex.
type GetPageIndexEndpoint struct{}

func (e *GetPageIndexEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/pageindex", e.handler
}

func (e *GetPageIndexEndpoint) RequiresInit() bool { return true }

func (e *GetPageIndexEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	pi, err := st.GetPageIndex(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "page index not found")
		return
	}

	writeJSON(w, http.StatusOK, pi)
}

func (e *GetPageIndexEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "pages <document-id>",
		Short: "Get the page-to-unit assignment map of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var pi guideline.PageIndex
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0]+"/pageindex", &pi); err != nil {
				return err
			}
			return api.Output(pi)
		},
	}
}
