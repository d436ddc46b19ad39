package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/primer/internal/api"
	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/svcctx"
)

// ListUnitsEndpoint handles GET /api/documents/{id}/units.
type ListUnitsEndpoint struct{}

func (e *ListUnitsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/units", e.handler
}

func (e *ListUnitsEndpoint) RequiresInit() bool { return true }

func (e *ListUnitsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	units, err := st.ListUnits(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Optional status filter, e.g. ?status=needs_review
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := units[:0]
		for _, u := range units {
			if string(u.Status) == status {
				filtered = append(filtered, u)
			}
		}
		units = filtered
	}

	writeJSON(w, http.StatusOK, units)
}

func (e *ListUnitsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list <document-id>",
		Short: "List guideline units of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/documents/" + args[0] + "/units"
			if status != "" {
				path += "?status=" + status
			}
			var units []guideline.Unit
			if err := client.Get(cmd.Context(), path, &units); err != nil {
				return err
			}
			return api.Output(units)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (open, stable, final, needs_review)")
	return cmd
}

// GetUnitEndpoint handles GET /api/documents/{id}/units/{topic}/{subtopic}.
type GetUnitEndpoint struct{}

func (e *GetUnitEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/documents/{id}/units/{topic}/{subtopic}", e.handler
}

func (e *GetUnitEndpoint) RequiresInit() bool { return true }

func (e *GetUnitEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, topic, subtopic := r.PathValue("id"), r.PathValue("topic"), r.PathValue("subtopic")
	if id == "" || topic == "" || subtopic == "" {
		writeError(w, http.StatusBadRequest, "document id, topic key and subtopic key are required")
		return
	}

	p := svcctx.PipelineFrom(r.Context())
	unit, err := p.GetUnit(r.Context(), id, topic, subtopic)
	if err != nil {
		writeStoreError(w, err, "unit not found")
		return
	}

	writeJSON(w, http.StatusOK, unit)
}

func (e *GetUnitEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id> <topic-key> <subtopic-key>",
		Short: "Get a guideline unit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var unit guideline.Unit
			path := fmt.Sprintf("/api/documents/%s/units/%s/%s", args[0], args[1], args[2])
			if err := client.Get(cmd.Context(), path, &unit); err != nil {
				return err
			}
			return api.Output(unit)
		},
	}
}

// reviewHandler wraps the approve/reject/regenerate pipeline actions,
// which share a signature.
func reviewHandler(action func(svc *svcctx.Services, r *http.Request, id, topic, subtopic string) (*guideline.Unit, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, topic, subtopic := r.PathValue("id"), r.PathValue("topic"), r.PathValue("subtopic")
		if id == "" || topic == "" || subtopic == "" {
			writeError(w, http.StatusBadRequest, "document id, topic key and subtopic key are required")
			return
		}

		svc := svcctx.ServicesFrom(r.Context())
		unit, err := action(svc, r, id, topic, subtopic)
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, unit)
	}
}

// ApproveUnitEndpoint handles POST /api/documents/{id}/units/{topic}/{subtopic}/approve.
type ApproveUnitEndpoint struct{}

func (e *ApproveUnitEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/units/{topic}/{subtopic}/approve",
		reviewHandler(func(svc *svcctx.Services, r *http.Request, id, topic, subtopic string) (*guideline.Unit, error) {
			return svc.Pipeline.ApproveUnit(r.Context(), id, topic, subtopic)
		})
}

func (e *ApproveUnitEndpoint) RequiresInit() bool { return true }

func (e *ApproveUnitEndpoint) Command(getServerURL func() string) *cobra.Command {
	return reviewCommand(getServerURL, "approve", "Approve a unit under review, marking it final")
}

// RejectUnitEndpoint handles POST /api/documents/{id}/units/{topic}/{subtopic}/reject.
type RejectUnitEndpoint struct{}

func (e *RejectUnitEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/units/{topic}/{subtopic}/reject",
		reviewHandler(func(svc *svcctx.Services, r *http.Request, id, topic, subtopic string) (*guideline.Unit, error) {
			return svc.Pipeline.RejectUnit(r.Context(), id, topic, subtopic)
		})
}

func (e *RejectUnitEndpoint) RequiresInit() bool { return true }

func (e *RejectUnitEndpoint) Command(getServerURL func() string) *cobra.Command {
	return reviewCommand(getServerURL, "reject", "Send a final unit back to review")
}

// RegenerateUnitEndpoint handles POST /api/documents/{id}/units/{topic}/{subtopic}/regenerate.
type RegenerateUnitEndpoint struct{}

func (e *RegenerateUnitEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents/{id}/units/{topic}/{subtopic}/regenerate",
		reviewHandler(func(svc *svcctx.Services, r *http.Request, id, topic, subtopic string) (*guideline.Unit, error) {
			return svc.Pipeline.RegenerateDescription(r.Context(), id, topic, subtopic)
		})
}

func (e *RegenerateUnitEndpoint) RequiresInit() bool { return true }

func (e *RegenerateUnitEndpoint) Command(getServerURL func() string) *cobra.Command {
	return reviewCommand(getServerURL, "regenerate", "Regenerate the teaching description of a unit under review")
}

// reviewCommand builds the shared CLI shape of the review actions.
func reviewCommand(getServerURL func() string, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <document-id> <topic-key> <subtopic-key>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var unit guideline.Unit
			path := fmt.Sprintf("/api/documents/%s/units/%s/%s/%s", args[0], args[1], args[2], verb)
			if err := client.Post(cmd.Context(), path, nil, &unit); err != nil {
				return err
			}
			return api.Output(unit)
		},
	}
}
