//go:build integration

package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shaiso/Tracker/internal/domain"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tracker"),
		postgres.WithUsername("tracker"),
		postgres.WithPassword("tracker"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	// Повторное применение схемы не должно падать.
	require.NoError(t, Migrate(ctx, pool))

	return pool
}

func intPtr(v int) *int { return &v }

func testWorkflow() *domain.Workflow {
	return &domain.Workflow{
		ID:        uuid.New(),
		Name:      "expense-approval",
		CreatedBy: uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Steps: []domain.WorkflowStep{
			{Name: "Draft", AssignedRole: uuid.New(), ActionType: domain.ActionTypeInput, Position: 0, NextPosition: intPtr(1)},
			{
				Name: "Review", AssignedRole: uuid.New(), ActionType: domain.ActionTypeApproval, Position: 1, NextPosition: intPtr(2),
				Validations: []domain.CustomValidation{
					{Type: domain.ValidationTypeExpression, Data: json.RawMessage(`{"expression": "true"}`)},
					{Type: domain.ValidationTypeExpression, Data: json.RawMessage(`{"expression": "action == \"Approve\""}`)},
				},
			},
			{Name: "Approve", AssignedRole: uuid.New(), ActionType: domain.ActionTypeApproval, Position: 2},
		},
	}
}

func TestRepositories(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	workflows := NewWorkflowRepo(pool)
	processes := NewProcessRepo(pool)
	executions := NewExecutionRepo(pool)
	logs := NewValidationLogRepo(pool)

	wf := testWorkflow()
	require.NoError(t, workflows.Create(ctx, wf))

	t.Run("workflow round trip", func(t *testing.T) {
		got, err := workflows.GetWithSteps(ctx, wf.ID)
		require.NoError(t, err)

		assert.Equal(t, wf.Name, got.Name)
		require.Len(t, got.Steps, 3)
		assert.Equal(t, "Draft", got.Steps[0].Name)
		require.NotNil(t, got.Steps[0].NextStepID)
		assert.Equal(t, got.Steps[1].ID, *got.Steps[0].NextStepID)
		assert.Nil(t, got.Steps[2].NextStepID)

		require.Len(t, got.Steps[1].Validations, 2)
		assert.JSONEq(t, `{"expression": "true"}`, string(got.Steps[1].Validations[0].Data))
	})

	t.Run("workflow not found", func(t *testing.T) {
		_, err := workflows.GetWithSteps(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	p := &domain.Process{
		WorkflowID:    wf.ID,
		InitiatorID:   uuid.New(),
		CurrentStepID: wf.Steps[0].ID,
		Status:        domain.ProcessStatusActive,
		StartedAt:     time.Now().UTC(),
	}
	require.NoError(t, processes.Create(ctx, p))

	t.Run("process with current step", func(t *testing.T) {
		got, err := processes.GetWithCurrentStep(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Version)
		require.NotNil(t, got.CurrentStep)
		assert.Equal(t, "Draft", got.CurrentStep.Name)
	})

	t.Run("update state with version check", func(t *testing.T) {
		stale := *p

		p.MoveTo(wf.Steps[1].ID)
		require.NoError(t, processes.UpdateState(ctx, p))
		assert.Equal(t, 2, p.Version)

		stale.MoveTo(wf.Steps[2].ID)
		assert.ErrorIs(t, processes.UpdateState(ctx, &stale), ErrConflict)

		missing := &domain.Process{ID: 999999, Version: 1}
		assert.ErrorIs(t, processes.UpdateState(ctx, missing), ErrNotFound)

		got, err := processes.GetWithCurrentStep(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Review", got.CurrentStep.Name)
		assert.Len(t, got.CurrentStep.Validations, 2)
	})

	t.Run("summary and list", func(t *testing.T) {
		s, err := processes.GetSummary(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "expense-approval", s.WorkflowName)
		assert.Equal(t, "Review", s.CurrentStepName)
		assert.Equal(t, wf.Steps[1].AssignedRole, s.AssignedRole)

		list, err := processes.List(ctx, ProcessFilter{RoleID: &wf.Steps[1].AssignedRole, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = processes.List(ctx, ProcessFilter{Status: domain.ProcessStatusCompleted, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("executions and logs", func(t *testing.T) {
		e := &domain.ProcessExecution{
			ProcessID:  p.ID,
			StepID:     wf.Steps[0].ID,
			UserID:     uuid.New(),
			Action:     domain.ActionSubmit,
			UserInputs: []domain.UserInput{{FieldName: "amount", FieldValue: "120", FieldType: "number"}},
			ExecutedAt: time.Now().UTC(),
		}
		require.NoError(t, executions.Append(ctx, e))
		assert.NotZero(t, e.ID)

		list, err := executions.ListByProcess(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, e.UserInputs, list[0].UserInputs)
		assert.Empty(t, list[0].Comment)

		l := &domain.ValidationLog{
			ProcessID:    p.ID,
			StepID:       wf.Steps[1].ID,
			IsSuccess:    false,
			ErrorMessage: "budget exceeded",
			ValidatedAt:  time.Now().UTC(),
		}
		require.NoError(t, logs.Append(ctx, l))

		got, err := logs.ListByProcess(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "budget exceeded", got[0].ErrorMessage)
	})
}
