package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/process"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Steps       []domain.StepSpec `json:"steps"`
}

// ToSpec конвертирует запрос в domain.WorkflowSpec.
func (r CreateWorkflowRequest) ToSpec(createdBy uuid.UUID) *domain.WorkflowSpec {
	return &domain.WorkflowSpec{
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   createdBy,
		Steps:       r.Steps,
	}
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedBy   uuid.UUID      `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	Steps       []StepResponse `json:"steps"`
}

// StepResponse — шаг workflow.
type StepResponse struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	AssignedRole uuid.UUID            `json:"assigned_role"`
	ActionType   domain.ActionType    `json:"action_type"`
	Position     int                  `json:"position"`
	NextStepID   *int64               `json:"next_step_id,omitempty"`
	Validations  []ValidationResponse `json:"validations,omitempty"`
}

// ValidationResponse — проверка шага.
type ValidationResponse struct {
	ID   int64                 `json:"id"`
	Type domain.ValidationType `json:"validation_type"`
	Data json.RawMessage       `json:"validation_data"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf *domain.Workflow) WorkflowResponse {
	resp := WorkflowResponse{
		ID:          wf.ID,
		Name:        wf.Name,
		Description: wf.Description,
		CreatedBy:   wf.CreatedBy,
		CreatedAt:   wf.CreatedAt,
		Steps:       make([]StepResponse, len(wf.Steps)),
	}
	for i, s := range wf.Steps {
		step := StepResponse{
			ID:           s.ID,
			Name:         s.Name,
			AssignedRole: s.AssignedRole,
			ActionType:   s.ActionType,
			Position:     s.Position,
			NextStepID:   s.NextStepID,
		}
		for _, v := range s.Validations {
			step.Validations = append(step.Validations, ValidationResponse{
				ID:   v.ID,
				Type: v.Type,
				Data: v.Data,
			})
		}
		resp.Steps[i] = step
	}
	return resp
}

// Process DTOs

// ExecuteStepRequest — действие пользователя на текущем шаге процесса.
type ExecuteStepRequest struct {
	ProcessID  int64              `json:"process_id"`
	StepName   string             `json:"step_name"`
	Action     domain.UserAction  `json:"action"`
	Comment    string             `json:"comment,omitempty"`
	UserInputs []domain.UserInput `json:"user_inputs,omitempty"`
}

// ProcessResponse — ответ с процессом.
type ProcessResponse struct {
	ID              int64                `json:"id"`
	WorkflowID      uuid.UUID            `json:"workflow_id"`
	WorkflowName    string               `json:"workflow_name"`
	InitiatorID     uuid.UUID            `json:"initiator_id"`
	Status          domain.ProcessStatus `json:"status"`
	CurrentStepName string               `json:"current_step_name"`
	AssignedRole    uuid.UUID            `json:"assigned_role"`
	StartedAt       time.Time            `json:"started_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

// ProcessFromDomain конвертирует domain.ProcessSummary в ProcessResponse.
func ProcessFromDomain(p domain.ProcessSummary) ProcessResponse {
	return ProcessResponse{
		ID:              p.ID,
		WorkflowID:      p.WorkflowID,
		WorkflowName:    p.WorkflowName,
		InitiatorID:     p.InitiatorID,
		Status:          p.Status,
		CurrentStepName: p.CurrentStepName,
		AssignedRole:    p.AssignedRole,
		StartedAt:       p.StartedAt,
		CompletedAt:     p.CompletedAt,
	}
}

// ExecuteStepResponse — результат действия.
type ExecuteStepResponse struct {
	Outcome     process.Outcome `json:"outcome"`
	ExecutionID int64           `json:"execution_id"`
	Process     ProcessResponse `json:"process"`
}

// ExecutionResponse — запись журнала действий.
type ExecutionResponse struct {
	ID         int64              `json:"id"`
	StepID     int64              `json:"step_id"`
	UserID     uuid.UUID          `json:"user_id"`
	Action     domain.UserAction  `json:"action"`
	Comment    string             `json:"comment,omitempty"`
	UserInputs []domain.UserInput `json:"user_inputs,omitempty"`
	ExecutedAt time.Time          `json:"executed_at"`
}

// ExecutionFromDomain конвертирует domain.ProcessExecution в ExecutionResponse.
func ExecutionFromDomain(e domain.ProcessExecution) ExecutionResponse {
	return ExecutionResponse{
		ID:         e.ID,
		StepID:     e.StepID,
		UserID:     e.UserID,
		Action:     e.Action,
		Comment:    e.Comment,
		UserInputs: e.UserInputs,
		ExecutedAt: e.ExecutedAt,
	}
}

// ValidationLogResponse — результат проверки.
type ValidationLogResponse struct {
	ID           int64     `json:"id"`
	StepID       int64     `json:"step_id"`
	IsSuccess    bool      `json:"is_success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RawResponse  string    `json:"raw_response,omitempty"`
	ValidatedAt  time.Time `json:"validated_at"`
}

// ValidationLogFromDomain конвертирует domain.ValidationLog в ValidationLogResponse.
func ValidationLogFromDomain(l domain.ValidationLog) ValidationLogResponse {
	return ValidationLogResponse{
		ID:           l.ID,
		StepID:       l.StepID,
		IsSuccess:    l.IsSuccess,
		ErrorMessage: l.ErrorMessage,
		RawResponse:  l.RawResponse,
		ValidatedAt:  l.ValidatedAt,
	}
}
