package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/engine"
	"github.com/shaiso/Tracker/internal/telemetry"
)

// Store — хранилище определений workflow.
// Реализуется repo.WorkflowRepo.
type Store interface {
	// Create сохраняет workflow с шагами и заполняет их ID и NextStepID.
	Create(ctx context.Context, wf *domain.Workflow) error

	// GetWithSteps возвращает workflow с шагами и проверками.
	GetWithSteps(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// Service — создание и чтение workflow.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService создаёт новый Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create проверяет определение, строит workflow и сохраняет его.
//
// Ошибка определения возвращается как *engine.DefinitionError,
// хранилище при этом не вызывается.
func (s *Service) Create(ctx context.Context, spec *domain.WorkflowSpec) (*domain.Workflow, error) {
	wf, err := engine.BuildWorkflow(spec)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("save workflow: %w", err)
	}

	telemetry.WithWorkflowID(s.logger, wf.ID.String()).Info("workflow created",
		"name", wf.Name,
		"steps", len(wf.Steps),
		"created_by", wf.CreatedBy,
	)
	return wf, nil
}

// Get возвращает workflow с шагами.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	wf, err := s.store.GetWithSteps(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow %s: %w", id, err)
	}
	return wf, nil
}
