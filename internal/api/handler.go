package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/process"
	"github.com/shaiso/Tracker/internal/repo"
)

// WorkflowService — создание и чтение workflow.
// Реализуется workflow.Service.
type WorkflowService interface {
	Create(ctx context.Context, spec *domain.WorkflowSpec) (*domain.Workflow, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// ProcessEngine — операции над процессами.
// Реализуется process.Engine.
type ProcessEngine interface {
	Start(ctx context.Context, workflowID, initiatorID uuid.UUID) (*domain.ProcessSummary, error)
	ExecuteStep(ctx context.Context, req process.ExecuteRequest) (*process.ExecuteResult, error)
	GetProcesses(ctx context.Context, filter repo.ProcessFilter) ([]domain.ProcessSummary, error)
	GetProcess(ctx context.Context, id int64) (*domain.ProcessSummary, error)
	ListExecutions(ctx context.Context, processID int64) ([]domain.ProcessExecution, error)
}

// ValidationLogStore — чтение результатов проверок.
// Реализуется repo.ValidationLogRepo.
type ValidationLogStore interface {
	ListByProcess(ctx context.Context, processID int64) ([]domain.ValidationLog, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflows      WorkflowService
	processes      ProcessEngine
	validationLogs ValidationLogStore
	logger         *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workflows WorkflowService
	Processes ProcessEngine

	// ValidationLogs — опционально; без него журнал проверок недоступен (404).
	ValidationLogs ValidationLogStore

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		workflows:      cfg.Workflows,
		processes:      cfg.Processes,
		validationLogs: cfg.ValidationLogs,
		logger:         logger,
	}
}
