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

// ProcessRepo — репозиторий для работы с processes.
type ProcessRepo struct {
	pool *pgxpool.Pool
}

// NewProcessRepo создаёт новый ProcessRepo.
func NewProcessRepo(pool *pgxpool.Pool) *ProcessRepo {
	return &ProcessRepo{pool: pool}
}

// Create создаёт новый процесс. Заполняет ID и Version.
func (r *ProcessRepo) Create(ctx context.Context, p *domain.Process) error {
	query := `
		INSERT INTO processes (workflow_id, initiator_id, current_step_id, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version
	`
	err := r.pool.QueryRow(ctx, query,
		p.WorkflowID,
		p.InitiatorID,
		p.CurrentStepID,
		p.Status,
		p.StartedAt,
		p.CompletedAt,
	).Scan(&p.ID, &p.Version)
	if err != nil {
		return fmt.Errorf("insert process: %w", err)
	}
	return nil
}

// GetByID возвращает процесс по ID.
func (r *ProcessRepo) GetByID(ctx context.Context, id int64) (*domain.Process, error) {
	query := `
		SELECT id, workflow_id, initiator_id, current_step_id, status,
		       started_at, completed_at, version
		FROM processes
		WHERE id = $1
	`
	var p domain.Process
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.WorkflowID,
		&p.InitiatorID,
		&p.CurrentStepID,
		&p.Status,
		&p.StartedAt,
		&p.CompletedAt,
		&p.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get process: %w", err)
	}
	return &p, nil
}

// GetWithCurrentStep возвращает процесс с текущим шагом и его проверками.
func (r *ProcessRepo) GetWithCurrentStep(ctx context.Context, id int64) (*domain.Process, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	step, err := getStep(ctx, r.pool, p.CurrentStepID)
	if err != nil {
		return nil, fmt.Errorf("get current step: %w", err)
	}
	p.CurrentStep = step
	return p, nil
}

// UpdateState сохраняет текущий шаг и статус процесса.
//
// Запись обновляется только если версия в БД совпадает с p.Version.
// При успехе p.Version увеличивается.
func (r *ProcessRepo) UpdateState(ctx context.Context, p *domain.Process) error {
	query := `
		UPDATE processes
		SET current_step_id = $3, status = $4, completed_at = $5, version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Version,
		p.CurrentStepID,
		p.Status,
		p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update process: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM processes WHERE id = $1)`, p.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check process: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}

	p.Version++
	return nil
}

// summaryQuery — проекция процесса с именем workflow и ролью текущего шага.
const summaryQuery = `
	SELECT p.id, p.workflow_id, w.name, p.initiator_id, p.status,
	       p.started_at, p.completed_at, s.name, s.assigned_role
	FROM processes p
	JOIN workflows w ON w.id = p.workflow_id
	JOIN workflow_steps s ON s.id = p.current_step_id
`

// GetSummary возвращает проекцию процесса.
func (r *ProcessRepo) GetSummary(ctx context.Context, id int64) (*domain.ProcessSummary, error) {
	return scanSummary(r.pool.QueryRow(ctx, summaryQuery+` WHERE p.id = $1`, id))
}

// List возвращает проекции процессов с фильтрацией, новые первыми.
func (r *ProcessRepo) List(ctx context.Context, filter ProcessFilter) ([]domain.ProcessSummary, error) {
	query := summaryQuery + `
		WHERE ($1::uuid IS NULL OR p.workflow_id = $1)
		  AND ($2::text IS NULL OR p.status = $2)
		  AND ($3::uuid IS NULL OR s.assigned_role = $3)
		ORDER BY p.started_at DESC, p.id DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Status)),
		nullUUID(filter.RoleID),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	var processes []domain.ProcessSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		processes = append(processes, *s)
	}
	return processes, rows.Err()
}

// --- Helpers ---

// ProcessFilter — параметры фильтрации процессов.
type ProcessFilter struct {
	WorkflowID *uuid.UUID
	Status     domain.ProcessStatus

	// RoleID — роль, назначенная на текущий шаг.
	RoleID *uuid.UUID

	Limit  int
	Offset int
}

// scanSummary сканирует одну строку в ProcessSummary.
func scanSummary(row pgx.Row) (*domain.ProcessSummary, error) {
	var s domain.ProcessSummary
	err := row.Scan(
		&s.ID,
		&s.WorkflowID,
		&s.WorkflowName,
		&s.InitiatorID,
		&s.Status,
		&s.StartedAt,
		&s.CompletedAt,
		&s.CurrentStepName,
		&s.AssignedRole,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan process: %w", err)
	}
	return &s, nil
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
