package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
)

var (
	roleAuthor   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	roleReviewer = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// chainSpec — workflow A(1) → B(2) → C(3).
func chainSpec() *domain.WorkflowSpec {
	return &domain.WorkflowSpec{
		Name: "expense-approval",
		Steps: []domain.StepSpec{
			{TempID: "a", Name: "Draft", Order: 1, AssignedRole: roleAuthor, ActionType: domain.ActionTypeInput, NextStepTempID: "b"},
			{TempID: "b", Name: "Review", Order: 2, AssignedRole: roleReviewer, ActionType: domain.ActionTypeApproval, NextStepTempID: "c"},
			{TempID: "c", Name: "Notify", Order: 3, AssignedRole: roleAuthor, ActionType: domain.ActionTypeNotification},
		},
	}
}

func assertDefinitionError(t *testing.T, err error, target error) *DefinitionError {
	t.Helper()

	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var dErr *DefinitionError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DefinitionError, got %T", err)
	}
	if !errors.Is(err, target) {
		t.Errorf("expected %v, got %v", target, err)
	}
	return dErr
}

func TestBuildWorkflow_Chain(t *testing.T) {
	wf, err := BuildWorkflow(chainSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wf.ID == uuid.Nil {
		t.Error("workflow ID should be assigned")
	}
	if len(wf.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(wf.Steps))
	}

	want := []string{"Draft", "Review", "Notify"}
	for i, name := range want {
		if wf.Steps[i].Name != name {
			t.Errorf("step %d: expected %s, got %s", i, name, wf.Steps[i].Name)
		}
		if wf.Steps[i].Position != i {
			t.Errorf("step %d: expected position %d, got %d", i, i, wf.Steps[i].Position)
		}
		if wf.Steps[i].WorkflowID != wf.ID {
			t.Errorf("step %d: workflow ID not set", i)
		}
	}

	if wf.Steps[0].NextPosition == nil || *wf.Steps[0].NextPosition != 1 {
		t.Error("Draft should link to Review")
	}
	if !wf.Steps[2].IsTerminal() {
		t.Error("Notify should be terminal")
	}
}

func TestBuildWorkflow_SortsByOrder(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Name: "reversed",
		Steps: []domain.StepSpec{
			{TempID: "c", Name: "C", Order: 30, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval},
			{TempID: "a", Name: "A", Order: 10, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval, NextStepTempID: "b"},
			{TempID: "b", Name: "B", Order: 20, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval, NextStepTempID: "c"},
		},
	}

	wf, err := BuildWorkflow(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, err := Walk(wf.Steps)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	for i, name := range []string{"A", "B", "C"} {
		if order[i].Name != name {
			t.Errorf("walk %d: expected %s, got %s", i, name, order[i].Name)
		}
	}
}

func TestBuildWorkflow_SingleStep(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Name: "single",
		Steps: []domain.StepSpec{
			{TempID: "only", Name: "Approve", Order: 1, AssignedRole: roleReviewer, ActionType: domain.ActionTypeApproval},
		},
	}

	wf, err := BuildWorkflow(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root, err := FindRoot(wf.Steps)
	if err != nil {
		t.Fatalf("find root: %v", err)
	}
	if root.Name != "Approve" || !root.IsTerminal() {
		t.Errorf("unexpected root: %+v", root)
	}
}

func TestBuildWorkflow_KeepsValidations(t *testing.T) {
	spec := chainSpec()
	spec.Steps[1].Validations = []domain.ValidationSpec{
		{Type: domain.ValidationTypeAPI, Data: json.RawMessage(`{"url": "http://billing/check"}`)},
		{Type: domain.ValidationTypeExpression, Data: json.RawMessage(`{"expression": "action == \"Approve\""}`)},
	}

	wf, err := BuildWorkflow(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	review := wf.StepByName("Review")
	if review == nil {
		t.Fatal("Review step missing")
	}
	if len(review.Validations) != 2 {
		t.Fatalf("expected 2 validations, got %d", len(review.Validations))
	}
	if review.Validations[0].Type != domain.ValidationTypeAPI {
		t.Errorf("validations must keep declaration order, got %s first", review.Validations[0].Type)
	}
}

func TestValidate_EmptySteps(t *testing.T) {
	tests := []struct {
		name string
		spec *domain.WorkflowSpec
	}{
		{name: "nil spec", spec: nil},
		{name: "empty steps", spec: &domain.WorkflowSpec{Name: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDefinitionError(t, Validate(tt.spec), ErrEmptySteps)
		})
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.WorkflowSpec)
		want   error
	}{
		{name: "workflow name", mutate: func(s *domain.WorkflowSpec) { s.Name = " " }, want: ErrEmptyWorkflowName},
		{name: "temp id", mutate: func(s *domain.WorkflowSpec) { s.Steps[1].TempID = "" }, want: ErrEmptyTempID},
		{name: "step name", mutate: func(s *domain.WorkflowSpec) { s.Steps[0].Name = "" }, want: ErrEmptyStepName},
		{name: "action type", mutate: func(s *domain.WorkflowSpec) { s.Steps[2].ActionType = "Sign" }, want: ErrUnknownActionType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := chainSpec()
			tt.mutate(spec)
			assertDefinitionError(t, Validate(spec), tt.want)
		})
	}
}

func TestValidate_DuplicateTempID(t *testing.T) {
	spec := chainSpec()
	spec.Steps[1].TempID = "a"

	wf, err := BuildWorkflow(spec)
	dErr := assertDefinitionError(t, err, ErrDuplicateTempID)

	if wf != nil {
		t.Error("workflow must not be built")
	}
	if dErr.Field != "temp_id" {
		t.Errorf("expected field temp_id, got %s", dErr.Field)
	}
}

func TestValidate_DuplicateName(t *testing.T) {
	spec := chainSpec()
	spec.Steps[2].Name = "Draft"

	dErr := assertDefinitionError(t, Validate(spec), ErrDuplicateStepName)
	if dErr.Message != "Duplicate step names found: Draft" {
		t.Errorf("unexpected message: %s", dErr.Message)
	}
}

func TestValidate_DuplicateOrder(t *testing.T) {
	spec := chainSpec()
	spec.Steps[2].Order = 2

	assertDefinitionError(t, Validate(spec), ErrDuplicateOrder)
}

func TestValidate_TempIDCheckedBeforeName(t *testing.T) {
	spec := chainSpec()
	spec.Steps[1].TempID = "a"
	spec.Steps[1].Name = "Draft"

	assertDefinitionError(t, Validate(spec), ErrDuplicateTempID)
}

func TestValidate_SelfReference(t *testing.T) {
	spec := chainSpec()
	spec.Steps[1].NextStepTempID = "b"

	dErr := assertDefinitionError(t, Validate(spec), ErrSelfReference)
	if dErr.TempID != "b" {
		t.Errorf("expected temp id b, got %s", dErr.TempID)
	}
}

func TestValidate_UnknownSuccessor(t *testing.T) {
	spec := chainSpec()
	spec.Steps[1].NextStepTempID = "zzz"

	assertDefinitionError(t, Validate(spec), ErrUnknownSuccessor)
}

func TestValidate_BackwardReference(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.WorkflowSpec)
	}{
		{
			name: "points to lower order",
			mutate: func(s *domain.WorkflowSpec) {
				s.Steps[2].NextStepTempID = "a"
				s.Steps[1].NextStepTempID = ""
			},
		},
		{
			name: "cycle between two steps",
			mutate: func(s *domain.WorkflowSpec) {
				s.Steps[2].NextStepTempID = "b"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := chainSpec()
			tt.mutate(spec)
			assertDefinitionError(t, Validate(spec), ErrBackwardReference)
		})
	}
}

func TestValidate_TerminalStepCount(t *testing.T) {
	t.Run("two final steps", func(t *testing.T) {
		spec := chainSpec()
		spec.Steps[1].NextStepTempID = ""

		assertDefinitionError(t, Validate(spec), ErrTerminalStepCount)
	})

	t.Run("no final step", func(t *testing.T) {
		spec := &domain.WorkflowSpec{
			Name: "loop",
			Steps: []domain.StepSpec{
				{TempID: "a", Name: "A", Order: 1, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval, NextStepTempID: "b"},
				{TempID: "b", Name: "B", Order: 2, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval, NextStepTempID: "a"},
			},
		}

		// Обратная ссылка проверяется раньше числа терминальных шагов.
		assertDefinitionError(t, Validate(spec), ErrBackwardReference)
	})
}

func TestValidate_MergingBranches(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Name: "merge",
		Steps: []domain.StepSpec{
			{TempID: "a", Name: "A", Order: 1, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval, NextStepTempID: "c"},
			{TempID: "b", Name: "B", Order: 2, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval, NextStepTempID: "c"},
			{TempID: "c", Name: "C", Order: 3, AssignedRole: roleAuthor, ActionType: domain.ActionTypeApproval},
		},
	}

	assertDefinitionError(t, Validate(spec), ErrMultipleRoots)
}

func TestValidate_InvalidValidation(t *testing.T) {
	tests := []struct {
		name string
		spec domain.ValidationSpec
	}{
		{name: "api without url", spec: domain.ValidationSpec{Type: domain.ValidationTypeAPI, Data: json.RawMessage(`{"method": "GET"}`)}},
		{name: "database without query", spec: domain.ValidationSpec{Type: domain.ValidationTypeDatabase, Data: json.RawMessage(`{"connection_name": "crm"}`)}},
		{name: "unknown type", spec: domain.ValidationSpec{Type: "Ldap", Data: json.RawMessage(`{}`)}},
		{name: "expression not bool", spec: domain.ValidationSpec{Type: domain.ValidationTypeExpression, Data: json.RawMessage(`{"expression": "1 + 1"}`)}},
		{name: "expression unknown variable", spec: domain.ValidationSpec{Type: domain.ValidationTypeExpression, Data: json.RawMessage(`{"expression": "amount > 10"}`)}},
		{name: "expression string result", spec: domain.ValidationSpec{Type: domain.ValidationTypeExpression, Data: json.RawMessage(`{"expression": "stepName + \"x\""}`)}},
		{name: "api camelCase template key", spec: domain.ValidationSpec{Type: domain.ValidationTypeAPI, Data: json.RawMessage(`{"url": "http://x", "payloadTemplate": "{}"}`)}},
		{name: "database camelCase connection key", spec: domain.ValidationSpec{Type: domain.ValidationTypeDatabase, Data: json.RawMessage(`{"connectionName": "crm", "query": "select true"}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := chainSpec()
			spec.Steps[1].Validations = []domain.ValidationSpec{tt.spec}

			dErr := assertDefinitionError(t, Validate(spec), ErrInvalidValidation)
			if !errors.Is(dErr, domain.ErrInvalidValidationData) {
				t.Errorf("expected wrapped ErrInvalidValidationData, got %v", dErr)
			}
			if dErr.Field != "validations[0]" {
				t.Errorf("unexpected field: %s", dErr.Field)
			}
		})
	}
}

func TestDefinitionError_Error(t *testing.T) {
	withStep := NewDefinitionError("s1", "name", "bad name", ErrEmptyStepName)
	if withStep.Error() != "step s1: bad name" {
		t.Errorf("unexpected error string: %s", withStep.Error())
	}

	global := NewDefinitionError("", "steps", "no steps", ErrEmptySteps)
	if global.Error() != "no steps" {
		t.Errorf("unexpected error string: %s", global.Error())
	}
}
