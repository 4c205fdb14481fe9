package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Tracker/internal/domain"
)

// querier — общее для *pgxpool.Pool и pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WorkflowRepo — репозиторий для работы с workflows.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create сохраняет workflow вместе с шагами и проверками в одной транзакции.
//
// Шаги вставляются в порядке Position, затем NextPosition
// переводится в next_step_id. Заполняет ID шагов, NextStepID и ID проверок.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO workflows (id, name, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, wf.ID, wf.Name, wf.Description, wf.CreatedBy, wf.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		step.WorkflowID = wf.ID

		err := tx.QueryRow(ctx, `
			INSERT INTO workflow_steps (workflow_id, name, assigned_role, action_type, position)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, wf.ID, step.Name, step.AssignedRole, step.ActionType, step.Position).Scan(&step.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("step %q: %w", step.Name, ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert step %q: %w", step.Name, err)
		}
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.NextPosition == nil {
			continue
		}
		pos := *step.NextPosition
		if pos < 0 || pos >= len(wf.Steps) {
			return fmt.Errorf("step %q: next position %d out of range", step.Name, pos)
		}
		nextID := wf.Steps[pos].ID

		_, err := tx.Exec(ctx, `
			UPDATE workflow_steps SET next_step_id = $2 WHERE id = $1
		`, step.ID, nextID)
		if err != nil {
			return fmt.Errorf("link step %q: %w", step.Name, err)
		}
		step.NextStepID = &nextID
	}

	for i := range wf.Steps {
		step := &wf.Steps[i]
		for j := range step.Validations {
			v := &step.Validations[j]
			v.StepID = step.ID

			err := tx.QueryRow(ctx, `
				INSERT INTO custom_validations (step_id, validation_type, validation_data, position)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, step.ID, v.Type, []byte(v.Data), j).Scan(&v.ID)
			if err != nil {
				return fmt.Errorf("insert validation %d of step %q: %w", j, step.Name, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID возвращает workflow без шагов.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	var wf domain.Workflow
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_by, created_at
		FROM workflows
		WHERE id = $1
	`, id).Scan(&wf.ID, &wf.Name, &wf.Description, &wf.CreatedBy, &wf.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return &wf, nil
}

// GetWithSteps возвращает workflow с шагами (по Position) и их проверками.
func (r *WorkflowRepo) GetWithSteps(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	wf, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, workflow_id, name, assigned_role, action_type, position, next_step_id
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		wf.Steps = append(wf.Steps, *step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}

	stepIDs := make([]int64, len(wf.Steps))
	for i := range wf.Steps {
		stepIDs[i] = wf.Steps[i].ID
	}

	validations, err := listValidations(ctx, r.pool, stepIDs)
	if err != nil {
		return nil, err
	}
	for i := range wf.Steps {
		wf.Steps[i].Validations = validations[wf.Steps[i].ID]
	}

	return wf, nil
}

// --- Helpers ---

// getStep возвращает шаг с проверками.
func getStep(ctx context.Context, q querier, id int64) (*domain.WorkflowStep, error) {
	row := q.QueryRow(ctx, `
		SELECT id, workflow_id, name, assigned_role, action_type, position, next_step_id
		FROM workflow_steps
		WHERE id = $1
	`, id)
	step, err := scanStep(row)
	if err != nil {
		return nil, err
	}

	validations, err := listValidations(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	step.Validations = validations[id]
	return step, nil
}

// listValidations возвращает проверки шагов, сгруппированные по step_id,
// в порядке объявления.
func listValidations(ctx context.Context, q querier, stepIDs []int64) (map[int64][]domain.CustomValidation, error) {
	result := make(map[int64][]domain.CustomValidation)
	if len(stepIDs) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx, `
		SELECT id, step_id, validation_type, validation_data
		FROM custom_validations
		WHERE step_id = ANY($1)
		ORDER BY step_id, position, id
	`, stepIDs)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.CustomValidation
		var data []byte
		if err := rows.Scan(&v.ID, &v.StepID, &v.Type, &data); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		v.Data = data
		result[v.StepID] = append(result[v.StepID], v)
	}
	return result, rows.Err()
}

// scanStep сканирует одну строку в WorkflowStep.
func scanStep(row pgx.Row) (*domain.WorkflowStep, error) {
	var step domain.WorkflowStep
	err := row.Scan(
		&step.ID,
		&step.WorkflowID,
		&step.Name,
		&step.AssignedRole,
		&step.ActionType,
		&step.Position,
		&step.NextStepID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan step: %w", err)
	}
	return &step, nil
}
