package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/source"
	"github.com/jackzampolin/primer/internal/store"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// IngestRequest is the request body for document ingestion.
type IngestRequest struct {
	// Path is a server-local path to a PDF file or a directory of
	// numbered page text files.
	Path       string `json:"path"`
	Title      string `json:"title,omitempty"`
	Subject    string `json:"subject,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"`
}

// IngestEndpoint handles POST /api/documents.
type IngestEndpoint struct{}

func (e *IngestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents", e.handler
}

func (e *IngestEndpoint) RequiresInit() bool { return true }

func (e *IngestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	doc, err := source.Ingest(r.Context(), st, req.Path, source.IngestOptions{
		Title:      req.Title,
		Subject:    req.Subject,
		GradeLevel: req.GradeLevel,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (e *IngestEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, subject, gradeLevel string
	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a PDF or page directory as a new document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := IngestRequest{
				Path:       args[0],
				Title:      title,
				Subject:    subject,
				GradeLevel: gradeLevel,
			}
			var doc store.Document
			if err := client.Post(cmd.Context(), "/api/documents", req, &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject area (e.g. mathematics)")
	cmd.Flags().StringVar(&gradeLevel, "grade-level", "", "Target grade level")
	return cmd
}

// ListDocumentsEndpoint handles GET /api/documents.
type ListDocumentsEndpoint struct{}

func (e *ListDocumentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents", e.handler
}

func (e *ListDocumentsEndpoint) RequiresInit() bool { return true }

func (e *ListDocumentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	docs, err := st.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (e *ListDocumentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var docs []store.Document
			if err := client.Get(cmd.Context(), "/api/documents", &docs); err != nil {
				return err
			}
			return api.Output(docs)
		},
	}
}

// GetDocumentEndpoint handles GET /api/documents/{id}.
type GetDocumentEndpoint struct{}

func (e *GetDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}", e.handler
}

func (e *GetDocumentEndpoint) RequiresInit() bool { return true }

func (e *GetDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	doc, err := st.GetDocument(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (e *GetDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a document by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc store.Document
			if err := client.Get(cmd.Context(), "/api/documents/"+args[0], &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}
