package engine

import "errors"

// Ошибки валидации WorkflowSpec.
var (
	// ErrEmptySteps — workflow не содержит шагов.
	ErrEmptySteps = errors.New("workflow spec has no steps")

	// ErrEmptyWorkflowName — у workflow нет имени.
	ErrEmptyWorkflowName = errors.New("workflow has empty name")

	// ErrEmptyTempID — шаг не имеет temp_id.
	ErrEmptyTempID = errors.New("step has empty temp ID")

	// ErrEmptyStepName — шаг не имеет имени.
	ErrEmptyStepName = errors.New("step has empty name")

	// ErrUnknownActionType — неизвестный тип шага.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrDuplicateTempID — несколько шагов с одинаковым temp_id.
	ErrDuplicateTempID = errors.New("duplicate step temp ID")

	// ErrDuplicateStepName — несколько шагов с одинаковым именем.
	ErrDuplicateStepName = errors.New("duplicate step name")

	// ErrDuplicateOrder — несколько шагов с одинаковым order.
	ErrDuplicateOrder = errors.New("duplicate step order")

	// ErrSelfReference — шаг ссылается на самого себя.
	ErrSelfReference = errors.New("step references itself")

	// ErrUnknownSuccessor — шаг ссылается на несуществующий шаг.
	ErrUnknownSuccessor = errors.New("step references unknown next step")

	// ErrBackwardReference — следующий шаг имеет order не больше текущего.
	ErrBackwardReference = errors.New("next step must have a higher order")

	// ErrTerminalStepCount — терминальных шагов не ровно один.
	ErrTerminalStepCount = errors.New("workflow must have exactly one final step")

	// ErrInvalidValidation — конфигурация проверки шага некорректна.
	ErrInvalidValidation = errors.New("invalid step validation")
)

// Ошибки обхода цепочки шагов.
var (
	// ErrNoRoot — нет шага, на который никто не ссылается.
	ErrNoRoot = errors.New("chain has no root step")

	// ErrMultipleRoots — несколько шагов без входящих ссылок.
	ErrMultipleRoots = errors.New("chain has more than one root step")

	// ErrDanglingSuccessor — ссылка на шаг вне workflow.
	ErrDanglingSuccessor = errors.New("step references a step outside the chain")

	// ErrCycle — цепочка замкнута.
	ErrCycle = errors.New("cycle detected in step chain")

	// ErrUnreachableStep — шаг не достижим от корня.
	ErrUnreachableStep = errors.New("step is not reachable from root")
)

// DefinitionError — ошибка в определении workflow с контекстом.
type DefinitionError struct {
	TempID  string // temp_id шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *DefinitionError) Error() string {
	if e.TempID != "" {
		return "step " + e.TempID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// NewDefinitionError создаёт новую ошибку определения.
func NewDefinitionError(tempID, field, message string, err error) *DefinitionError {
	return &DefinitionError{
		TempID:  tempID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
