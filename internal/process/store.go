package process

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/mq"
	"github.com/shaiso/Tracker/internal/repo"
	"github.com/shaiso/Tracker/internal/validation"
)

// WorkflowStore — чтение определений workflow.
// Реализуется repo.WorkflowRepo.
type WorkflowStore interface {
	// GetWithSteps возвращает workflow с шагами и проверками.
	// Возвращает repo.ErrNotFound, если workflow нет.
	GetWithSteps(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// ProcessStore — хранилище процессов.
// Реализуется repo.ProcessRepo.
type ProcessStore interface {
	// Create сохраняет новый процесс и заполняет ID и Version.
	Create(ctx context.Context, p *domain.Process) error

	// GetWithCurrentStep возвращает процесс с текущим шагом и его проверками.
	GetWithCurrentStep(ctx context.Context, id int64) (*domain.Process, error)

	// UpdateState сохраняет текущий шаг и статус, если версия не изменилась.
	// Увеличивает p.Version. Возвращает repo.ErrConflict при несовпадении версии.
	UpdateState(ctx context.Context, p *domain.Process) error

	// GetSummary возвращает проекцию процесса.
	GetSummary(ctx context.Context, id int64) (*domain.ProcessSummary, error)

	// List возвращает проекции процессов по фильтру.
	List(ctx context.Context, filter repo.ProcessFilter) ([]domain.ProcessSummary, error)
}

// ExecutionStore — журнал действий над процессами.
// Реализуется repo.ExecutionRepo.
type ExecutionStore interface {
	Append(ctx context.Context, e *domain.ProcessExecution) error
	ListByProcess(ctx context.Context, processID int64) ([]domain.ProcessExecution, error)
}

// Validator — запуск проверок шага.
// Реализуется validation.Dispatcher.
type Validator interface {
	ValidateAll(ctx context.Context, validations []domain.CustomValidation, vctx validation.Context) error
}

// EventPublisher — публикация событий процесса.
// Реализуется mq.Publisher.
type EventPublisher interface {
	PublishProcessEvent(ctx context.Context, msgType mq.MessageType, event mq.ProcessEvent) error
}
