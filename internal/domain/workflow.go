package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Workflow — определение бизнес-процесса согласования.
//
// Workflow — это "шаблон" процесса: упорядоченная цепочка шагов,
// каждый из которых закреплён за ролью. Один workflow может иметь
// множество запущенных экземпляров (Process).
//
// Шаги образуют ровно одну односвязную цепочку:
//
//	step1 → step2 → ... → stepN (терминальный, без NextStepID)
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow (например, "expense-approval").
	Name string `json:"name"`

	// Description — описание назначения workflow.
	Description string `json:"description"`

	// CreatedBy — пользователь, создавший workflow.
	CreatedBy uuid.UUID `json:"created_by"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// Steps — шаги workflow, отсортированные по порядку объявления.
	Steps []WorkflowStep `json:"steps"`
}

// WorkflowStep — отдельный шаг workflow.
//
// Связь со следующим шагом однонаправленная: шаг хранит только ID
// следующего шага. Обратный поиск (кто ссылается на шаг) вычисляется
// сканированием списка шагов.
type WorkflowStep struct {
	// ID — идентификатор шага (назначается хранилищем).
	ID int64 `json:"id"`

	// WorkflowID — ссылка на родительский workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Name — имя шага, уникальное в рамках workflow.
	// Клиент передаёт его в ExecuteStep как ожидаемый текущий шаг.
	Name string `json:"name"`

	// AssignedRole — роль, которой разрешено выполнять действие на шаге.
	AssignedRole uuid.UUID `json:"assigned_role"`

	// ActionType — тип шага: Input, Approval, Notification.
	ActionType ActionType `json:"action_type"`

	// Position — индекс шага в порядке объявления (0, 1, 2, ...).
	Position int `json:"position"`

	// NextPosition — индекс следующего шага в Workflow.Steps.
	// Заполняется билдером до сохранения; хранилище переводит его в NextStepID.
	NextPosition *int `json:"-"`

	// NextStepID — ID следующего шага. Nil для терминального шага.
	NextStepID *int64 `json:"next_step_id,omitempty"`

	// Validations — проверки, выполняемые перед продвижением процесса.
	Validations []CustomValidation `json:"validations,omitempty"`
}

// IsTerminal возвращает true, если у шага нет следующего шага.
func (s *WorkflowStep) IsTerminal() bool {
	return s.NextStepID == nil && s.NextPosition == nil
}

// RequiresInput возвращает true, если шаг требует пользовательского ввода.
func (s *WorkflowStep) RequiresInput() bool {
	return s.ActionType == ActionTypeInput
}

// CustomValidation — пользовательская проверка, привязанная к шагу.
//
// Data — непрозрачный JSON, схема которого зависит от Type.
// Схема проверяется при создании workflow (см. DecodeValidationData).
type CustomValidation struct {
	// ID — идентификатор проверки.
	ID int64 `json:"id"`

	// StepID — ссылка на шаг.
	StepID int64 `json:"step_id"`

	// Type — тип проверки: API, Database, Expression.
	Type ValidationType `json:"validation_type"`

	// Data — конфигурация проверки.
	Data json.RawMessage `json:"validation_data"`
}

// StepByID возвращает шаг по ID или nil.
func (w *Workflow) StepByID(id int64) *WorkflowStep {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}
	return nil
}

// StepByName возвращает шаг по имени или nil.
func (w *Workflow) StepByName(name string) *WorkflowStep {
	for i := range w.Steps {
		if w.Steps[i].Name == name {
			return &w.Steps[i]
		}
	}
	return nil
}

// WorkflowSpec — входные данные для построения workflow.
//
// Шаги ссылаются друг на друга через TempID, так как настоящие ID
// ещё не назначены.
type WorkflowSpec struct {
	// Name — имя workflow.
	Name string `json:"name"`

	// Description — описание.
	Description string `json:"description,omitempty"`

	// CreatedBy — создатель workflow (заполняется из Actor).
	CreatedBy uuid.UUID `json:"-"`

	// Steps — шаги в произвольном порядке.
	Steps []StepSpec `json:"steps"`
}

// StepSpec — определение шага в WorkflowSpec.
type StepSpec struct {
	// TempID — временный идентификатор шага, уникальный в рамках spec.
	TempID string `json:"temp_id"`

	// Name — имя шага.
	Name string `json:"name"`

	// Order — порядковый номер. Следующий шаг обязан иметь больший Order.
	Order int `json:"order"`

	// AssignedRole — роль исполнителя.
	AssignedRole uuid.UUID `json:"assigned_role"`

	// ActionType — тип шага.
	ActionType ActionType `json:"action_type"`

	// NextStepTempID — TempID следующего шага. Пусто для терминального шага.
	NextStepTempID string `json:"next_step_temp_id,omitempty"`

	// Validations — проверки шага.
	Validations []ValidationSpec `json:"validations,omitempty"`
}

// ValidationSpec — определение проверки в StepSpec.
type ValidationSpec struct {
	// Type — тип проверки.
	Type ValidationType `json:"validation_type"`

	// Data — конфигурация проверки (схема зависит от Type).
	Data json.RawMessage `json:"validation_data"`
}
