package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/jobs"
	"github.com/jackzampolin/primer/internal/pipeline"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// ProcessPageEndpoint handles POST /api/documents/{id}/pages/{page}/process.
// It runs a single page through the pipeline synchronously.
type ProcessPageEndpoint struct{}

func (e *ProcessPageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/pages/{page}/process", e.handler
}

func (e *ProcessPageEndpoint) RequiresInit() bool { return true }

func (e *ProcessPageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pageNum, err := strconv.Atoi(r.PathValue("page"))
	if id == "" || err != nil || pageNum < 1 {
		writeError(w, http.StatusBadRequest, "document id and positive page number are required")
		return
	}

	p := svcctx.PipelineFrom(r.Context())
	result, err := p.ProcessPage(r.Context(), id, pageNum)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *ProcessPageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "page <document-id> <page-number>",
		Short: "Process a single page through the pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var result pipeline.PageResult
			path := fmt.Sprintf("/api/documents/%s/pages/%s/process", args[0], args[1])
			if err := client.Post(cmd.Context(), path, nil, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
}

// ProcessDocumentRequest is the request body for document processing.
type ProcessDocumentRequest struct {
	// Finalize runs document finalization after the last page.
	Finalize bool `json:"finalize,omitempty"`
}

// ProcessDocumentResponse returns the submitted job ID.
type ProcessDocumentResponse struct {
	JobID string `json:"job_id"`
}

// ProcessDocumentEndpoint handles POST /api/documents/{id}/process.
// It submits a background job that walks every unprocessed page in order.
type ProcessDocumentEndpoint struct{}

func (e *ProcessDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/process", e.handler
}

func (e *ProcessDocumentEndpoint) RequiresInit() bool { return true }

func (e *ProcessDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	var req ProcessDocumentRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	st := svcctx.StoreFrom(r.Context())
	if _, err := st.GetDocument(r.Context(), id); err != nil {
		writeStoreError(w, err, "document not found")
		return
	}

	manager := svcctx.JobManagerFrom(r.Context())
	jobID, err := manager.Submit(r.Context(), &jobs.ProcessDocument{
		DocumentID: id,
		Finalize:   req.Finalize,
	}, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, ProcessDocumentResponse{JobID: jobID})
}

func (e *ProcessDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var finalize bool
	cmd := &cobra.Command{
		Use:   "document <document-id>",
		Short: "Process all pending pages of a document as a background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := ProcessDocumentRequest{Finalize: finalize}
			var resp ProcessDocumentResponse
			if err := client.Post(cmd.Context(), "/api/documents/"+args[0]+"/process", req, &resp); err != nil {
				return err
			}
			fmt.Printf("Job started: %s\n", resp.JobID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&finalize, "finalize", false, "Finalize the document after the last page")
	return cmd
}

// FinalizeEndpoint handles POST /api/documents/{id}/finalize.
// Finalization is synchronous: it forces remaining open units through
// synthesis and runs document-wide deduplication.
type FinalizeEndpoint struct{}

func (e *FinalizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/finalize", e.handler
}

func (e *FinalizeEndpoint) RequiresInit() bool { return true }

func (e *FinalizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	p := svcctx.PipelineFrom(r.Context())
	result, err := p.FinalizeDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *FinalizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <document-id>",
		Short: "Finalize a document (force stabilization, dedupe, freeze)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var result pipeline.FinalizationResult
			if err := client.Post(cmd.Context(), "/api/documents/"+args[0]+"/finalize", nil, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
}
