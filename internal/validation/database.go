package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/engine"
)

// Querier — подключение, на котором выполняются запросы проверок.
// Реализуется *pgxpool.Pool.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DatabaseStrategy — проверка SQL-запросом к именованной БД.
//
// Запрос должен вернуть одну строку, первая колонка которой
// приводится к bool. Проверка пройдена, если значение true.
// Пустой результат считается отказом.
type DatabaseStrategy struct {
	databases map[string]Querier
}

// NewDatabaseStrategy создаёт новый DatabaseStrategy.
// databases — подключения по имени (connection_name).
func NewDatabaseStrategy(databases map[string]Querier) *DatabaseStrategy {
	if databases == nil {
		databases = make(map[string]Querier)
	}
	return &DatabaseStrategy{databases: databases}
}

// Kind возвращает ValidationTypeDatabase.
func (s *DatabaseStrategy) Kind() domain.ValidationType {
	return domain.ValidationTypeDatabase
}

// Validate выполняет запрос проверки.
func (s *DatabaseStrategy) Validate(ctx context.Context, vctx Context, v domain.CustomValidation) (Result, error) {
	decoded, err := domain.DecodeValidationData(v.Type, v.Data)
	if err != nil {
		return Result{}, err
	}
	data, ok := decoded.(*domain.DatabaseValidationData)
	if !ok {
		return Result{}, fmt.Errorf("%w: expected Database data, got %s", domain.ErrInvalidValidationData, decoded.Type())
	}

	db, ok := s.databases[data.ConnectionName]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownConnection, data.ConnectionName)
	}

	var passed bool
	err = db.QueryRow(ctx, data.Query, namedArgs(vctx, data.Parameters)).Scan(&passed)
	if errors.Is(err, pgx.ErrNoRows) {
		return Failed(fmt.Sprintf("Database validation '%s' returned no rows", data.ConnectionName), ""), nil
	}
	if err != nil {
		return Failed(fmt.Sprintf("Error While Querying Database '%s' : %v", data.ConnectionName, err), ""), nil
	}

	raw := fmt.Sprintf("%t", passed)
	if !passed {
		return Failed(fmt.Sprintf("Database validation '%s' did not pass", data.ConnectionName), raw), nil
	}
	return Passed(raw), nil
}

// namedArgs собирает именованные аргументы запроса.
// Параметры проверки перекрывают переменные контекста.
func namedArgs(vctx Context, params map[string]any) pgx.NamedArgs {
	args := pgx.NamedArgs{}
	for k, v := range vctx.Env() {
		args[k] = v
	}

	values := vctx.Values()
	for k, v := range params {
		args[k] = engine.RenderValue(v, values)
	}
	return args
}
