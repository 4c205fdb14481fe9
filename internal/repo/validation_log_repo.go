package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Tracker/internal/domain"
)

// ValidationLogRepo — журнал результатов проверок.
type ValidationLogRepo struct {
	pool *pgxpool.Pool
}

// NewValidationLogRepo создаёт новый ValidationLogRepo.
func NewValidationLogRepo(pool *pgxpool.Pool) *ValidationLogRepo {
	return &ValidationLogRepo{pool: pool}
}

// Append добавляет запись. Заполняет ID.
func (r *ValidationLogRepo) Append(ctx context.Context, l *domain.ValidationLog) error {
	query := `
		INSERT INTO validation_logs (process_id, step_id, is_success, error_message, raw_response, validated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		l.ProcessID,
		l.StepID,
		l.IsSuccess,
		nullString(l.ErrorMessage),
		nullString(l.RawResponse),
		l.ValidatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert validation log: %w", err)
	}
	return nil
}

// ListByProcess возвращает результаты проверок процесса.
func (r *ValidationLogRepo) ListByProcess(ctx context.Context, processID int64) ([]domain.ValidationLog, error) {
	query := `
		SELECT id, process_id, step_id, is_success, COALESCE(error_message, ''),
		       COALESCE(raw_response, ''), validated_at
		FROM validation_logs
		WHERE process_id = $1
		ORDER BY validated_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, processID)
	if err != nil {
		return nil, fmt.Errorf("list validation logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ValidationLog
	for rows.Next() {
		var l domain.ValidationLog
		err := rows.Scan(&l.ID, &l.ProcessID, &l.StepID, &l.IsSuccess, &l.ErrorMessage, &l.RawResponse, &l.ValidatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan validation log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
