package validation

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
)

// Strategy — реализация одного типа проверки.
//
// Каждый domain.ValidationType имеет ровно одну стратегию.
type Strategy interface {
	// Kind возвращает тип проверки.
	Kind() domain.ValidationType

	// Validate выполняет проверку.
	//
	// Отказ проверки возвращается как Result с Success == false.
	// Ошибка означает, что проверку невозможно выполнить
	// (например, конфигурация не разбирается).
	Validate(ctx context.Context, vctx Context, v domain.CustomValidation) (Result, error)
}

// Context — контекст выполнения шага, доступный проверкам.
type Context struct {
	ProcessID int64
	StepID    int64
	StepName  string
	UserID    uuid.UUID
	Action    domain.UserAction
}

// Ключи переменных контекста в шаблонах и выражениях.
const (
	KeyProcessID = domain.KeyProcessID
	KeyStepID    = domain.KeyStepID
	KeyStepName  = domain.KeyStepName
	KeyUserID    = domain.KeyUserID
	KeyAction    = domain.KeyAction
)

// Values возвращает переменные контекста для подстановки в {{key}}.
func (c Context) Values() map[string]string {
	return map[string]string{
		KeyProcessID: strconv.FormatInt(c.ProcessID, 10),
		KeyStepID:    strconv.FormatInt(c.StepID, 10),
		KeyStepName:  c.StepName,
		KeyUserID:    c.UserID.String(),
		KeyAction:    c.Action.String(),
	}
}

// Env возвращает переменные контекста для выражений.
func (c Context) Env() map[string]any {
	return domain.ExpressionEnv(c.ProcessID, c.StepID, c.StepName, c.UserID.String(), c.Action.String())
}

// Result — результат выполнения проверки.
type Result struct {
	// Success — проверка пройдена.
	Success bool

	// Message — причина отказа.
	Message string

	// RawResponse — ответ проверяющей стороны как есть.
	RawResponse string
}

// Passed создаёт успешный результат.
func Passed(raw string) Result {
	return Result{Success: true, RawResponse: raw}
}

// Failed создаёт результат отказа.
func Failed(message, raw string) Result {
	return Result{Message: message, RawResponse: raw}
}
