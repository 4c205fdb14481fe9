package domain

import (
	"time"

	"github.com/google/uuid"
)

// Process — запущенный экземпляр workflow.
//
// Process создаётся при старте (Engine.Start) и изменяется только
// через Engine.ExecuteStep. Ядро никогда не удаляет процессы.
//
// Жизненный цикл:
//
//	ACTIVE → COMPLETED
//	       ↘ REJECTED
type Process struct {
	// ID — идентификатор процесса.
	ID int64 `json:"id"`

	// WorkflowID — workflow, который исполняется.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// InitiatorID — пользователь, запустивший процесс.
	InitiatorID uuid.UUID `json:"initiator_id"`

	// CurrentStepID — текущий шаг. Всегда принадлежит WorkflowID.
	CurrentStepID int64 `json:"current_step_id"`

	// Status — текущий статус.
	Status ProcessStatus `json:"status"`

	// StartedAt — время старта.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt — время завершения (COMPLETED или REJECTED).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Version — счётчик оптимистичной блокировки.
	// Увеличивается хранилищем при каждом изменении состояния.
	Version int `json:"version"`

	// CurrentStep — текущий шаг с проверками.
	// Заполняется только запросом "процесс с текущим шагом".
	CurrentStep *WorkflowStep `json:"-"`
}

// IsFinished возвращает true, если процесс в финальном статусе.
func (p *Process) IsFinished() bool {
	return p.Status.IsTerminal()
}

// MoveTo переводит процесс на следующий шаг.
func (p *Process) MoveTo(stepID int64) {
	p.CurrentStepID = stepID
}

// MarkCompleted переводит процесс в статус COMPLETED.
func (p *Process) MarkCompleted() {
	now := time.Now().UTC()
	p.Status = ProcessStatusCompleted
	p.CompletedAt = &now
}

// MarkRejected переводит процесс в статус REJECTED.
func (p *Process) MarkRejected() {
	now := time.Now().UTC()
	p.Status = ProcessStatusRejected
	p.CompletedAt = &now
}

// ProcessExecution — запись журнала действий над процессом.
//
// Append-only: одна запись на каждый принятый вызов ExecuteStep,
// независимо от того, продвинулся процесс или нет.
type ProcessExecution struct {
	ID         int64       `json:"id"`
	ProcessID  int64       `json:"process_id"`
	StepID     int64       `json:"step_id"`
	UserID     uuid.UUID   `json:"user_id"`
	Action     UserAction  `json:"action"`
	Comment    string      `json:"comment,omitempty"`
	UserInputs []UserInput `json:"user_inputs,omitempty"`
	ExecutedAt time.Time   `json:"executed_at"`
}

// UserInput — значение, введённое пользователем на шаге типа Input.
type UserInput struct {
	// FieldName — имя поля.
	FieldName string `json:"field_name"`

	// FieldValue — значение в строковом виде.
	FieldValue string `json:"field_value"`

	// FieldType — тип поля: "text", "number", "date", "boolean", "file".
	FieldType string `json:"field_type"`
}

// ValidationLog — результат выполнения одной проверки.
type ValidationLog struct {
	ID           int64     `json:"id"`
	ProcessID    int64     `json:"process_id"`
	StepID       int64     `json:"step_id"`
	IsSuccess    bool      `json:"is_success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RawResponse  string    `json:"raw_response,omitempty"`
	ValidatedAt  time.Time `json:"validated_at"`
}

// Actor — действующий пользователь.
//
// Поставляется внешним провайдером идентификации; ядро только
// сравнивает RoleID с ролью шага.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	RoleID uuid.UUID `json:"role_id"`
}

// ProcessSummary — проекция процесса для чтения (списки, ответы API).
type ProcessSummary struct {
	ID              int64         `json:"id"`
	WorkflowID      uuid.UUID     `json:"workflow_id"`
	WorkflowName    string        `json:"workflow_name"`
	InitiatorID     uuid.UUID     `json:"initiator_id"`
	Status          ProcessStatus `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	CurrentStepName string        `json:"current_step_name"`
	AssignedRole    uuid.UUID     `json:"assigned_role"`
}
