package validation

import "errors"

// Ошибки проверок.
var (
	// ErrStrategyNotFound — для типа проверки не зарегистрирована стратегия.
	ErrStrategyNotFound = errors.New("no validator registered")

	// ErrFailed — проверка не пройдена.
	ErrFailed = errors.New("validation failed")

	// ErrUnknownConnection — стратегия Database не знает подключения.
	ErrUnknownConnection = errors.New("unknown database connection")
)

// FailedError — проверка шага не пройдена.
//
// Message — сообщение проверки, которое видит пользователь.
type FailedError struct {
	ValidationID int64
	Type         string
	Message      string
}

// Error реализует интерфейс error.
func (e *FailedError) Error() string {
	return "validation failed: " + e.Message
}

// Unwrap возвращает ErrFailed.
func (e *FailedError) Unwrap() error {
	return ErrFailed
}
