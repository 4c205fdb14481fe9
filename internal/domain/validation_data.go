package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrInvalidValidationData — конфигурация проверки не соответствует схеме типа.
var ErrInvalidValidationData = errors.New("invalid validation data")

// ValidationData — конфигурация проверки конкретного типа.
//
// Каждый ValidationType имеет ровно один вариант ValidationData.
// Новый тип проверки добавляется явно: константа ValidationType,
// вариант здесь и ветка в DecodeValidationData.
type ValidationData interface {
	// Type возвращает тип проверки, которому принадлежит конфигурация.
	Type() ValidationType

	// Check проверяет обязательные поля.
	Check() error
}

// APIValidationData — конфигурация проверки через внешний API.
//
// Пример:
//
//	{
//	    "url": "https://billing.example.com/check/{{processId}}",
//	    "method": "POST",
//	    "headers": {"Authorization": "secret"},
//	    "auth_scheme": "Basic",
//	    "payload_template": "{\"user\": \"{{userId}}\", \"step\": \"{{stepName}}\"}"
//	}
//
// Плейсхолдеры {{key}} заменяются значениями контекста выполнения.
//
// AuthScheme добавляется перед значением заголовка Authorization,
// если в значении нет схемы (нет пробела). По умолчанию Bearer.
// Значение вида "Basic dXNlcg==" отправляется как есть.
type APIValidationData struct {
	URL             string            `json:"url"`
	Method          string            `json:"method,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	AuthScheme      string            `json:"auth_scheme,omitempty"`
	PayloadTemplate string            `json:"payload_template,omitempty"`
}

// DefaultAuthScheme — схема Authorization, если AuthScheme не задана.
const DefaultAuthScheme = "Bearer"

// Scheme возвращает схему для заголовка Authorization.
func (d *APIValidationData) Scheme() string {
	if s := strings.TrimSpace(d.AuthScheme); s != "" {
		return s
	}
	return DefaultAuthScheme
}

// Type возвращает ValidationTypeAPI.
func (d *APIValidationData) Type() ValidationType { return ValidationTypeAPI }

// Check проверяет, что задан URL.
func (d *APIValidationData) Check() error {
	if strings.TrimSpace(d.URL) == "" {
		return fmt.Errorf("%w: API validation requires a URL", ErrInvalidValidationData)
	}
	return nil
}

// DatabaseValidationData — конфигурация проверки SQL-запросом.
//
// Запрос выполняется на именованном подключении (ConnectionName).
// Проверка успешна, если первая колонка первой строки равна true.
// Параметры передаются как именованные аргументы (@name), строковые
// значения могут содержать {{key}}. Переменные контекста доступны
// в запросе как @processId, @stepId, @stepName, @userId, @action.
//
//	{
//	    "connection_name": "billing",
//	    "query": "SELECT balance >= @limit FROM accounts WHERE owner = @userId",
//	    "parameters": {"limit": 100}
//	}
type DatabaseValidationData struct {
	ConnectionName string         `json:"connection_name"`
	Query          string         `json:"query"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// Type возвращает ValidationTypeDatabase.
func (d *DatabaseValidationData) Type() ValidationType { return ValidationTypeDatabase }

// Check проверяет имя подключения и запрос.
func (d *DatabaseValidationData) Check() error {
	if strings.TrimSpace(d.ConnectionName) == "" {
		return fmt.Errorf("%w: Database validation requires a connection name", ErrInvalidValidationData)
	}
	if strings.TrimSpace(d.Query) == "" {
		return fmt.Errorf("%w: Database validation requires a query", ErrInvalidValidationData)
	}
	return nil
}

// Переменные контекста выполнения шага. Доступны в {{key}}
// шаблонах, именованных аргументах SQL и выражениях.
const (
	KeyProcessID = "processId"
	KeyStepID    = "stepId"
	KeyStepName  = "stepName"
	KeyUserID    = "userId"
	KeyAction    = "action"
)

// ExpressionEnv возвращает переменные выражения.
// Типы значений фиксированы: ID — int64, остальное — строки.
func ExpressionEnv(processID, stepID int64, stepName, userID, action string) map[string]any {
	return map[string]any{
		KeyProcessID: processID,
		KeyStepID:    stepID,
		KeyStepName:  stepName,
		KeyUserID:    userID,
		KeyAction:    action,
	}
}

// CompileExpression компилирует выражение проверки.
// Выражение может ссылаться только на переменные ExpressionEnv
// и должно возвращать bool.
func CompileExpression(expression string) (*vm.Program, error) {
	return expr.Compile(expression,
		expr.Env(ExpressionEnv(0, 0, "", "", "")),
		expr.AsBool(),
	)
}

// ExpressionValidationData — конфигурация проверки булевым выражением.
//
// Выражение вычисляется над переменными контекста:
// processId, stepId, stepName, userId, action.
//
//	{"expression": "action == \"Submit\" && stepName != \"Draft\""}
type ExpressionValidationData struct {
	Expression string `json:"expression"`
}

// Type возвращает ValidationTypeExpression.
func (d *ExpressionValidationData) Type() ValidationType { return ValidationTypeExpression }

// Check проверяет, что выражение задано, ссылается только
// на переменные контекста и возвращает bool.
func (d *ExpressionValidationData) Check() error {
	if strings.TrimSpace(d.Expression) == "" {
		return fmt.Errorf("%w: Expression validation requires an expression", ErrInvalidValidationData)
	}
	if _, err := CompileExpression(d.Expression); err != nil {
		return fmt.Errorf("%w: expression does not compile: %v", ErrInvalidValidationData, err)
	}
	return nil
}

// DecodeValidationData разбирает и проверяет конфигурацию проверки.
//
// Возвращает ErrInvalidValidationData, если JSON не разбирается,
// содержит неизвестные поля, обязательные поля не заданы или тип неизвестен.
func DecodeValidationData(t ValidationType, raw json.RawMessage) (ValidationData, error) {
	var data ValidationData
	switch t {
	case ValidationTypeAPI:
		data = &APIValidationData{}
	case ValidationTypeDatabase:
		data = &DatabaseValidationData{}
	case ValidationTypeExpression:
		data = &ExpressionValidationData{}
	default:
		return nil, fmt.Errorf("%w: unknown validation type: %q", ErrInvalidValidationData, t)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s validation data is required", ErrInvalidValidationData, t)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: invalid data format for type %s: %v", ErrInvalidValidationData, t, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after %s validation object", ErrInvalidValidationData, t)
	}
	if err := data.Check(); err != nil {
		return nil, err
	}
	return data, nil
}
