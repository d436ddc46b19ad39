package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/store"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	manager := svcctx.JobManagerFrom(r.Context())
	jobs, err := manager.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var jobs []store.JobRecord
			if err := client.Get(cmd.Context(), "/api/jobs", &jobs); err != nil {
				return err
			}
			return api.Output(jobs)
		},
	}
}

// GetJobEndpoint handles GET /api/jobs/{id}.
type GetJobEndpoint struct{}

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }

func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	manager := svcctx.JobManagerFrom(r.Context())
	job, err := manager.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Get a job by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var job store.JobRecord
			if err := client.Get(cmd.Context(), "/api/jobs/"+args[0], &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
}

// CancelJobEndpoint handles POST /api/jobs/{id}/cancel.
type CancelJobEndpoint struct{}

func (e *CancelJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/{id}/cancel", e.handler
}

func (e *CancelJobEndpoint) RequiresInit() bool { return true }

func (e *CancelJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	manager := svcctx.JobManagerFrom(r.Context())
	if _, err := manager.Get(r.Context(), id); err != nil {
		writeStoreError(w, err, "job not found")
		return
	}

	manager.Cancel(id)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (e *CancelJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp map[string]string
			if err := client.Post(cmd.Context(), "/api/jobs/"+args[0]+"/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Job %s: %s\n", args[0], resp["status"])
			return nil
		},
	}
}
