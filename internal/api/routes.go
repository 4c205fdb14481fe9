package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
		Identity(h.logger),
	)

	// Workflows
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))

	// Processes
	mux.Handle("POST /api/v1/processes/start/{workflowId}", chain(http.HandlerFunc(h.StartProcess)))
	mux.Handle("POST /api/v1/processes/execute", chain(http.HandlerFunc(h.ExecuteStep)))
	mux.Handle("GET /api/v1/processes", chain(http.HandlerFunc(h.ListProcesses)))
	mux.Handle("GET /api/v1/processes/{id}", chain(http.HandlerFunc(h.GetProcess)))
	mux.Handle("GET /api/v1/processes/{id}/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/processes/{id}/validation-logs", chain(http.HandlerFunc(h.ListValidationLogs)))
}
