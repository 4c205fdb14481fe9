package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/process"
	"github.com/shaiso/Tracker/internal/repo"
)

// StartProcess запускает процесс workflow от имени текущего пользователя.
// POST /api/v1/processes/start/{workflowId}
func (h *Handler) StartProcess(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("workflowId"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	actor, _ := ActorFromContext(r.Context())

	p, err := h.processes.Start(r.Context(), workflowID, actor.UserID)
	if HandleError(w, r, err) {
		return
	}

	Created(w, ProcessFromDomain(*p))
}

// ExecuteStep применяет действие пользователя к процессу.
// POST /api/v1/processes/execute
func (h *Handler) ExecuteStep(w http.ResponseWriter, r *http.Request) {
	var req ExecuteStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ProcessID <= 0 {
		BadRequest(w, "process_id is required")
		return
	}
	if req.StepName == "" {
		BadRequest(w, "step_name is required")
		return
	}

	actor, _ := ActorFromContext(r.Context())

	res, err := h.processes.ExecuteStep(r.Context(), process.ExecuteRequest{
		Actor:     actor,
		ProcessID: req.ProcessID,
		StepName:  req.StepName,
		Action:    req.Action,
		Comment:   req.Comment,
		Inputs:    req.UserInputs,
	})
	if HandleError(w, r, err) {
		return
	}

	resp := ExecuteStepResponse{
		Outcome: res.Outcome,
		Process: ProcessFromDomain(*res.Process),
	}
	if res.Execution != nil {
		resp.ExecutionID = res.Execution.ID
	}
	Success(w, resp)
}

// ListProcesses возвращает список процессов с фильтрацией.
// GET /api/v1/processes?workflow_id=...&status=...&role_id=...&limit=...&offset=...
func (h *Handler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	filter := repo.ProcessFilter{}
	q := r.URL.Query()

	if s := q.Get("workflow_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &id
	}

	if s := q.Get("role_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid role_id")
			return
		}
		filter.RoleID = &id
	}

	if s := q.Get("status"); s != "" {
		status := domain.ProcessStatus(s)
		if !status.IsValid() {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	filter.Limit = parseIntDefault(q.Get("limit"), 50)
	filter.Offset = parseIntDefault(q.Get("offset"), 0)

	processes, err := h.processes.GetProcesses(r.Context(), filter)
	if HandleError(w, r, err) {
		return
	}

	result := make([]ProcessResponse, len(processes))
	for i, p := range processes {
		result[i] = ProcessFromDomain(p)
	}

	List(w, result, len(result))
}

// GetProcess возвращает процесс по ID.
// GET /api/v1/processes/{id}
func (h *Handler) GetProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := processIDFromPath(w, r)
	if !ok {
		return
	}

	p, err := h.processes.GetProcess(r.Context(), id)
	if HandleError(w, r, err) {
		return
	}

	Success(w, ProcessFromDomain(*p))
}

// ListExecutions возвращает журнал действий процесса.
// GET /api/v1/processes/{id}/executions
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	id, ok := processIDFromPath(w, r)
	if !ok {
		return
	}

	executions, err := h.processes.ListExecutions(r.Context(), id)
	if HandleError(w, r, err) {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// ListValidationLogs возвращает результаты проверок процесса.
// GET /api/v1/processes/{id}/validation-logs
func (h *Handler) ListValidationLogs(w http.ResponseWriter, r *http.Request) {
	if h.validationLogs == nil {
		NotFound(w, "validation logs are not available")
		return
	}

	id, ok := processIDFromPath(w, r)
	if !ok {
		return
	}

	if _, err := h.processes.GetProcess(r.Context(), id); HandleError(w, r, err) {
		return
	}

	logs, err := h.validationLogs.ListByProcess(r.Context(), id)
	if HandleError(w, r, err) {
		return
	}

	result := make([]ValidationLogResponse, len(logs))
	for i, l := range logs {
		result[i] = ValidationLogFromDomain(l)
	}

	List(w, result, len(result))
}

// processIDFromPath разбирает {id}. При ошибке пишет 400 и возвращает false.
func processIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, "invalid process id")
		return 0, false
	}
	return id, true
}

// parseIntDefault парсит строку в int с дефолтным значением.
func parseIntDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
