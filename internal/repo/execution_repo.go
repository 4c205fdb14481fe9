package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Tracker/internal/domain"
)

// ExecutionRepo — журнал действий над процессами (только добавление).
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Append добавляет запись в журнал. Заполняет ID.
func (r *ExecutionRepo) Append(ctx context.Context, e *domain.ProcessExecution) error {
	var inputsJSON []byte
	if len(e.UserInputs) > 0 {
		var err error
		inputsJSON, err = json.Marshal(e.UserInputs)
		if err != nil {
			return fmt.Errorf("marshal user inputs: %w", err)
		}
	}

	query := `
		INSERT INTO process_executions (process_id, step_id, user_id, action, comment, user_inputs, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		e.ProcessID,
		e.StepID,
		e.UserID,
		e.Action,
		nullString(e.Comment),
		inputsJSON,
		e.ExecutedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// ListByProcess возвращает журнал процесса в хронологическом порядке.
func (r *ExecutionRepo) ListByProcess(ctx context.Context, processID int64) ([]domain.ProcessExecution, error) {
	query := `
		SELECT id, process_id, step_id, user_id, action, comment, user_inputs, executed_at
		FROM process_executions
		WHERE process_id = $1
		ORDER BY executed_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, processID)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.ProcessExecution
	for rows.Next() {
		var e domain.ProcessExecution
		var comment *string
		var inputsJSON []byte

		err := rows.Scan(
			&e.ID,
			&e.ProcessID,
			&e.StepID,
			&e.UserID,
			&e.Action,
			&comment,
			&inputsJSON,
			&e.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}

		if comment != nil {
			e.Comment = *comment
		}
		if inputsJSON != nil {
			if err := json.Unmarshal(inputsJSON, &e.UserInputs); err != nil {
				return nil, fmt.Errorf("unmarshal user inputs: %w", err)
			}
		}
		executions = append(executions, e)
	}
	return executions, rows.Err()
}
