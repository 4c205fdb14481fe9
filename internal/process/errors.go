package process

import (
	"errors"

	"github.com/shaiso/Tracker/internal/engine"
	"github.com/shaiso/Tracker/internal/repo"
	"github.com/shaiso/Tracker/internal/validation"
)

// Ошибки ProcessEngine.
var (
	// ErrWorkflowNotFound — workflow не найден.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrNoSteps — у workflow нет шагов.
	ErrNoSteps = errors.New("workflow has no steps")

	// ErrMalformedChain — не удалось определить первый шаг.
	ErrMalformedChain = errors.New("workflow step chain is malformed")

	// ErrProcessNotFound — процесс не найден.
	ErrProcessNotFound = errors.New("process not found")

	// ErrProcessFinished — процесс уже в статусе COMPLETED или REJECTED.
	ErrProcessFinished = errors.New("process is already finished")

	// ErrStepMismatch — процесс не на ожидаемом шаге.
	ErrStepMismatch = errors.New("process is not at the expected step")

	// ErrForbidden — роль пользователя не совпадает с ролью шага.
	ErrForbidden = errors.New("user role cannot act on this step")

	// ErrInvalidAction — неизвестное действие.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInputRequired — шаг Input требует пользовательский ввод.
	ErrInputRequired = errors.New("input data is required for input steps")

	// ErrValidationFailed — проверка шага не пройдена.
	ErrValidationFailed = errors.New("validation failed")

	// ErrConcurrentUpdate — процесс изменён параллельным вызовом.
	ErrConcurrentUpdate = errors.New("process was modified concurrently")
)

// ErrorKind — категория ошибки для вызывающей стороны.
type ErrorKind string

const (
	KindDefinition    ErrorKind = "definition"
	KindNotFound      ErrorKind = "not_found"
	KindAuthorization ErrorKind = "authorization"
	KindInput         ErrorKind = "input"
	KindValidation    ErrorKind = "validation"
	KindConflict      ErrorKind = "conflict"
	KindInternal      ErrorKind = "internal"
)

// Kind определяет категорию ошибки.
// Ошибки хранилища и сети относятся к KindInternal.
func Kind(err error) ErrorKind {
	var defErr *engine.DefinitionError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &defErr):
		return KindDefinition
	case errors.Is(err, ErrNoSteps), errors.Is(err, ErrMalformedChain):
		return KindDefinition
	case errors.Is(err, ErrWorkflowNotFound), errors.Is(err, ErrProcessNotFound), errors.Is(err, repo.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrStepMismatch), errors.Is(err, ErrProcessFinished):
		return KindAuthorization
	case errors.Is(err, ErrInputRequired), errors.Is(err, ErrInvalidAction):
		return KindInput
	case errors.Is(err, ErrValidationFailed), errors.Is(err, validation.ErrFailed):
		return KindValidation
	case errors.Is(err, ErrConcurrentUpdate), errors.Is(err, repo.ErrConflict), errors.Is(err, repo.ErrAlreadyExists):
		return KindConflict
	default:
		return KindInternal
	}
}
