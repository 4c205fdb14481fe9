package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// CreateWorkflow создаёт workflow.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.Create(r.Context(), req.ToSpec(actor.UserID))
	if HandleError(w, r, err) {
		return
	}

	Created(w, WorkflowFromDomain(wf))
}

// GetWorkflow возвращает workflow с шагами.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.Get(r.Context(), id)
	if HandleError(w, r, err) {
		return
	}

	Success(w, WorkflowFromDomain(wf))
}
