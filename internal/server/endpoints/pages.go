package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/store"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// ListPagesEndpoint handles GET /api/documents/{id}/pages.
type ListPagesEndpoint struct{}

func (e *ListPagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/pages", e.handler
}

func (e *ListPagesEndpoint) RequiresInit() bool { return true }

func (e *ListPagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	pages, err := st.ListPages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pages)
}

func (e *ListPagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "pages <document-id>",
		Short: "List pages of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var pages []store.PageRecord
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0]+"/pages", &pages); err != nil {
				return err
			}
			return api.Output(pages)
		},
	}
}

// GetPageEndpoint handles GET /api/documents/{id}/pages/{page}.
type GetPageEndpoint struct{}

func (e *GetPageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/pages/{page}", e.handler
}

func (e *GetPageEndpoint) RequiresInit() bool { return true }

func (e *GetPageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pageNum, err := strconv.Atoi(r.PathValue("page"))
	if id == "" || err != nil || pageNum < 1 {
		writeError(w, http.StatusBadRequest, "document id and positive page number are required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	page, err := st.GetPage(r.Context(), id, pageNum)
	if err != nil {
		writeStoreError(w, err, "page not found")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (e *GetPageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "page <document-id> <page-number>",
		Short: "Get a page record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var page store.PageRecord
			path := fmt.Sprintf("/api/documents/%s/pages/%s", args[0], args[1])
			if err := client.Get(cmd.Context(), path, &page); err != nil {
				return err
			}
			return api.Output(page)
		},
	}
}
