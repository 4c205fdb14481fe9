package validation

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shaiso/Tracker/internal/domain"
)

// ExpressionStrategy — проверка булевым выражением над контекстом.
//
// Переменные: processId, stepId, stepName, userId, action.
// Доступны встроенные функции expr (lower, upper, trim, ...).
//
//	action == "Submit" && lower(stepName) != "draft"
//
// Скомпилированные выражения кэшируются.
type ExpressionStrategy struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExpressionStrategy создаёт новый ExpressionStrategy.
func NewExpressionStrategy() *ExpressionStrategy {
	return &ExpressionStrategy{
		cache: make(map[string]*vm.Program),
	}
}

// Kind возвращает ValidationTypeExpression.
func (s *ExpressionStrategy) Kind() domain.ValidationType {
	return domain.ValidationTypeExpression
}

// Validate вычисляет выражение.
func (s *ExpressionStrategy) Validate(_ context.Context, vctx Context, v domain.CustomValidation) (Result, error) {
	decoded, err := domain.DecodeValidationData(v.Type, v.Data)
	if err != nil {
		return Result{}, err
	}
	data, ok := decoded.(*domain.ExpressionValidationData)
	if !ok {
		return Result{}, fmt.Errorf("%w: expected Expression data, got %s", domain.ErrInvalidValidationData, decoded.Type())
	}

	env := vctx.Env()

	program, err := s.program(data.Expression)
	if err != nil {
		return Failed(fmt.Sprintf("Expression does not compile: %v", err), ""), nil
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return Failed(fmt.Sprintf("Expression evaluation failed: %v", err), ""), nil
	}

	passed, _ := out.(bool)
	raw := fmt.Sprintf("%v", out)
	if !passed {
		return Failed(fmt.Sprintf("Expression '%s' evaluated to %v", data.Expression, out), raw), nil
	}
	return Passed(raw), nil
}

// program возвращает скомпилированное выражение из кэша или компилирует его.
func (s *ExpressionStrategy) program(expression string) (*vm.Program, error) {
	s.mu.RLock()
	if prog, ok := s.cache[expression]; ok {
		s.mu.RUnlock()
		return prog, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if prog, ok := s.cache[expression]; ok {
		return prog, nil
	}

	prog, err := domain.CompileExpression(expression)
	if err != nil {
		return nil, err
	}

	s.cache[expression] = prog
	return prog, nil
}
