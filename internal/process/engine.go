package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/engine"
	"github.com/shaiso/Tracker/internal/mq"
	"github.com/shaiso/Tracker/internal/repo"
	"github.com/shaiso/Tracker/internal/telemetry"
	"github.com/shaiso/Tracker/internal/validation"
)

// Default configuration values.
const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Outcome — результат принятого действия.
type Outcome string

const (
	// OutcomeAdvanced — процесс перешёл на следующий шаг.
	OutcomeAdvanced Outcome = "advanced"

	// OutcomeCompleted — пройден терминальный шаг.
	OutcomeCompleted Outcome = "completed"

	// OutcomeRejected — процесс отклонён.
	OutcomeRejected Outcome = "rejected"

	// outcomeRefused — действие записано, но процесс не изменён.
	outcomeRefused Outcome = "refused"
)

// Engine — машина состояний процессов.
//
// Engine:
//   - запускает процесс с корневого шага workflow
//   - проверяет шаг, роль и ввод пользователя
//   - записывает каждое принятое действие в журнал
//   - запускает проверки шага перед продвижением
//   - переводит процесс на следующий шаг или в финальный статус
type Engine struct {
	workflows  WorkflowStore
	processes  ProcessStore
	executions ExecutionStore
	validator  Validator
	events     EventPublisher

	locks *Locker

	// Цепочки шагов не меняются после создания workflow.
	wfCache map[uuid.UUID]*domain.Workflow
	wfMu    sync.RWMutex

	logger *slog.Logger
}

// Config — конфигурация Engine.
type Config struct {
	// Stores
	Workflows  WorkflowStore
	Processes  ProcessStore
	Executions ExecutionStore

	// Validator — запуск проверок шага (обычно validation.Dispatcher).
	Validator Validator

	// Events — публикация событий (опционально).
	Events EventPublisher

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	validator := cfg.Validator
	if validator == nil {
		validator = validation.NewDispatcher(validation.Config{Logger: logger})
	}

	return &Engine{
		workflows:  cfg.Workflows,
		processes:  cfg.Processes,
		executions: cfg.Executions,
		validator:  validator,
		events:     cfg.Events,
		locks:      NewLocker(),
		wfCache:    make(map[uuid.UUID]*domain.Workflow),
		logger:     logger,
	}
}

// Start запускает процесс workflow.
//
// Первым шагом становится единственный шаг, на который не ссылается
// ни один другой шаг.
func (e *Engine) Start(ctx context.Context, workflowID, initiatorID uuid.UUID) (*domain.ProcessSummary, error) {
	wf, err := e.workflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSteps, wf.Name)
	}

	root, err := engine.FindRoot(wf.Steps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChain, err)
	}

	p := &domain.Process{
		WorkflowID:    wf.ID,
		InitiatorID:   initiatorID,
		CurrentStepID: root.ID,
		Status:        domain.ProcessStatusActive,
		StartedAt:     time.Now().UTC(),
	}

	if err := e.processes.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create process: %w", err)
	}

	logger := telemetry.WithProcessID(e.logger, p.ID)
	logger.Info("process started",
		"workflow_id", wf.ID,
		"initiator_id", initiatorID,
		"step", root.Name,
	)
	telemetry.ProcessesStarted.Inc()

	e.publish(ctx, logger, mq.MessageTypeProcessStarted, p, root, domain.Actor{UserID: initiatorID}, "", "")

	return summarize(wf, p, root), nil
}

// ExecuteRequest — действие пользователя на текущем шаге.
type ExecuteRequest struct {
	Actor     domain.Actor
	ProcessID int64

	// StepName — шаг, на котором клиент ожидает увидеть процесс.
	StepName string

	Action  domain.UserAction
	Comment string
	Inputs  []domain.UserInput
}

// ExecuteResult — результат принятого действия.
type ExecuteResult struct {
	Process   *domain.ProcessSummary
	Execution *domain.ProcessExecution
	Outcome   Outcome
}

// ExecuteStep применяет действие пользователя к процессу.
//
// Порядок:
//  1. процесс существует, не завершён и стоит на StepName
//  2. роль пользователя совпадает с ролью шага
//  3. для шага Input передан ввод
//  4. действие записывается в журнал (всегда, до проверок)
//  5. Approve/Submit: проверки шага, затем переход или COMPLETED
//  6. Reject: REJECTED без проверок
//
// Отказ на шаге 5 возвращает ErrValidationFailed, процесс не меняется.
// Событие публикуется после снятия блокировки процесса.
func (e *Engine) ExecuteStep(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	if !req.Action.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}

	st, err := e.applyStep(ctx, req)
	if err != nil {
		return nil, err
	}

	e.publish(ctx, st.logger, eventType(st.result.Outcome), st.process, st.current, req.Actor, req.Action, req.Comment)

	return st.result, nil
}

// appliedStep — сохранённый переход и данные для события.
type appliedStep struct {
	result  *ExecuteResult
	process *domain.Process
	current *domain.WorkflowStep
	logger  *slog.Logger
}

// applyStep выполняет шаги 1-6 ExecuteStep под блокировкой процесса.
func (e *Engine) applyStep(ctx context.Context, req ExecuteRequest) (*appliedStep, error) {
	unlock := e.locks.Lock(req.ProcessID)
	defer unlock()

	p, err := e.processes.GetWithCurrentStep(ctx, req.ProcessID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrProcessNotFound, req.ProcessID)
	}
	if err != nil {
		return nil, fmt.Errorf("get process: %w", err)
	}

	if p.IsFinished() {
		return nil, fmt.Errorf("%w: status %s", ErrProcessFinished, p.Status)
	}

	step := p.CurrentStep
	if step == nil {
		return nil, fmt.Errorf("%w: process %d has no current step", ErrMalformedChain, p.ID)
	}

	if step.Name != req.StepName {
		return nil, fmt.Errorf("%w: process is not in '%s' step", ErrStepMismatch, req.StepName)
	}

	if req.Actor.RoleID != step.AssignedRole {
		return nil, ErrForbidden
	}

	if step.RequiresInput() && len(req.Inputs) == 0 {
		return nil, ErrInputRequired
	}

	wf, err := e.workflow(ctx, p.WorkflowID)
	if err != nil {
		return nil, err
	}

	logger := telemetry.WithProcessID(e.logger, p.ID).With("step", step.Name, "action", req.Action)

	exec := &domain.ProcessExecution{
		ProcessID:  p.ID,
		StepID:     step.ID,
		UserID:     req.Actor.UserID,
		Action:     req.Action,
		Comment:    req.Comment,
		UserInputs: req.Inputs,
		ExecutedAt: time.Now().UTC(),
	}
	if err := e.executions.Append(ctx, exec); err != nil {
		return nil, fmt.Errorf("append execution: %w", err)
	}

	var (
		outcome Outcome
		next    *domain.WorkflowStep
	)

	if req.Action.IsApproveLike() {
		if err := e.runValidations(ctx, p, step, req); err != nil {
			telemetry.StepExecutions.WithLabelValues(req.Action.String(), string(outcomeRefused)).Inc()
			logger.Info("step refused", "error", err)
			return nil, err
		}

		if step.NextStepID != nil {
			next = wf.StepByID(*step.NextStepID)
			if next == nil {
				return nil, fmt.Errorf("%w: next step %d is not in workflow", ErrMalformedChain, *step.NextStepID)
			}
			p.MoveTo(next.ID)
			outcome = OutcomeAdvanced
		} else {
			p.MarkCompleted()
			outcome = OutcomeCompleted
		}
	} else {
		p.MarkRejected()
		outcome = OutcomeRejected
	}

	err = e.processes.UpdateState(ctx, p)
	if errors.Is(err, repo.ErrConflict) {
		return nil, fmt.Errorf("%w: %d", ErrConcurrentUpdate, p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("update process: %w", err)
	}

	telemetry.StepExecutions.WithLabelValues(req.Action.String(), string(outcome)).Inc()
	logger.Info("step executed", "outcome", outcome, "status", p.Status)

	current := step
	if next != nil {
		current = next
	}

	return &appliedStep{
		result: &ExecuteResult{
			Process:   summarize(wf, p, current),
			Execution: exec,
			Outcome:   outcome,
		},
		process: p,
		current: current,
		logger:  logger,
	}, nil
}

// runValidations запускает проверки текущего шага.
func (e *Engine) runValidations(ctx context.Context, p *domain.Process, step *domain.WorkflowStep, req ExecuteRequest) error {
	if len(step.Validations) == 0 {
		return nil
	}

	vctx := validation.Context{
		ProcessID: p.ID,
		StepID:    step.ID,
		StepName:  step.Name,
		UserID:    req.Actor.UserID,
		Action:    req.Action,
	}

	err := e.validator.ValidateAll(ctx, step.Validations, vctx)
	if err == nil {
		return nil
	}

	var failed *validation.FailedError
	if errors.As(err, &failed) {
		return fmt.Errorf("%w: %s", ErrValidationFailed, failed.Message)
	}
	return fmt.Errorf("run validations: %w", err)
}

// GetProcesses возвращает процессы по фильтру. Состояние не меняется.
func (e *Engine) GetProcesses(ctx context.Context, filter repo.ProcessFilter) ([]domain.ProcessSummary, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	processes, err := e.processes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return processes, nil
}

// GetProcess возвращает проекцию процесса.
func (e *Engine) GetProcess(ctx context.Context, id int64) (*domain.ProcessSummary, error) {
	summary, err := e.processes.GetSummary(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrProcessNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get process: %w", err)
	}
	return summary, nil
}

// ListExecutions возвращает журнал действий процесса.
func (e *Engine) ListExecutions(ctx context.Context, processID int64) ([]domain.ProcessExecution, error) {
	if _, err := e.GetProcess(ctx, processID); err != nil {
		return nil, err
	}

	executions, err := e.executions.ListByProcess(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return executions, nil
}

// workflow возвращает workflow из кэша или хранилища.
func (e *Engine) workflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	e.wfMu.RLock()
	wf, ok := e.wfCache[id]
	e.wfMu.RUnlock()
	if ok {
		return wf, nil
	}

	wf, err := e.workflows.GetWithSteps(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}

	e.wfMu.Lock()
	e.wfCache[id] = wf
	e.wfMu.Unlock()

	return wf, nil
}

// publish отправляет событие процесса.
// Ошибка публикации не отменяет переход: состояние уже сохранено.
func (e *Engine) publish(
	ctx context.Context,
	logger *slog.Logger,
	msgType mq.MessageType,
	p *domain.Process,
	step *domain.WorkflowStep,
	actor domain.Actor,
	action domain.UserAction,
	comment string,
) {
	if e.events == nil {
		return
	}

	event := mq.ProcessEvent{
		ProcessID:    p.ID,
		WorkflowID:   p.WorkflowID,
		Status:       string(p.Status),
		StepID:       step.ID,
		StepName:     step.Name,
		ActionType:   string(step.ActionType),
		AssignedRole: step.AssignedRole,
		UserID:       actor.UserID,
		Action:       string(action),
		Comment:      comment,
	}

	if err := e.events.PublishProcessEvent(ctx, msgType, event); err != nil {
		logger.Warn("failed to publish process event", "type", msgType, "error", err)
	}
}

// eventType возвращает тип события для результата действия.
func eventType(o Outcome) mq.MessageType {
	switch o {
	case OutcomeCompleted:
		return mq.MessageTypeProcessCompleted
	case OutcomeRejected:
		return mq.MessageTypeProcessRejected
	default:
		return mq.MessageTypeProcessAdvanced
	}
}

// summarize строит проекцию процесса.
func summarize(wf *domain.Workflow, p *domain.Process, current *domain.WorkflowStep) *domain.ProcessSummary {
	return &domain.ProcessSummary{
		ID:              p.ID,
		WorkflowID:      p.WorkflowID,
		WorkflowName:    wf.Name,
		InitiatorID:     p.InitiatorID,
		Status:          p.Status,
		StartedAt:       p.StartedAt,
		CompletedAt:     p.CompletedAt,
		CurrentStepName: current.Name,
		AssignedRole:    current.AssignedRole,
	}
}
