package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
)

// BuildWorkflow превращает WorkflowSpec в связанный Workflow.
//
// Шаги сортируются по Order, Position = индекс в отсортированном списке,
// ссылка на следующий шаг выражается через NextPosition. Настоящие ID
// шагов назначает хранилище при сохранении.
//
// При нарушении правил возвращается *DefinitionError,
// Workflow не создаётся.
func BuildWorkflow(spec *domain.WorkflowSpec) (*domain.Workflow, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	ordered := make([]*domain.StepSpec, len(spec.Steps))
	for i := range spec.Steps {
		ordered[i] = &spec.Steps[i]
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	positions := make(map[string]int, len(ordered))
	for i, s := range ordered {
		positions[s.TempID] = i
	}

	wf := &domain.Workflow{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(spec.Name),
		Description: spec.Description,
		CreatedBy:   spec.CreatedBy,
		CreatedAt:   time.Now().UTC(),
		Steps:       make([]domain.WorkflowStep, len(ordered)),
	}

	for i, s := range ordered {
		step := domain.WorkflowStep{
			WorkflowID:   wf.ID,
			Name:         s.Name,
			AssignedRole: s.AssignedRole,
			ActionType:   s.ActionType,
			Position:     i,
		}
		if s.NextStepTempID != "" {
			next := positions[s.NextStepTempID]
			step.NextPosition = &next
		}
		for _, v := range s.Validations {
			step.Validations = append(step.Validations, domain.CustomValidation{
				Type: v.Type,
				Data: v.Data,
			})
		}
		wf.Steps[i] = step
	}

	return wf, nil
}

// Validate выполняет полную валидацию WorkflowSpec.
//
// Правила проверяются по порядку, возвращается первое нарушение:
//   - наличие шагов, имя workflow, temp_id, имя и тип каждого шага
//   - уникальность temp_id, имён и order
//   - отсутствие ссылок на самого себя
//   - существование следующего шага
//   - order следующего шага больше order текущего
//   - ровно один терминальный шаг, цепочка без ветвлений
//   - конфигурации проверок соответствуют своим типам
func Validate(spec *domain.WorkflowSpec) error {
	if spec == nil || len(spec.Steps) == 0 {
		return NewDefinitionError("", "steps", "workflow must have at least one step", ErrEmptySteps)
	}

	if strings.TrimSpace(spec.Name) == "" {
		return NewDefinitionError("", "name", "workflow name is required", ErrEmptyWorkflowName)
	}

	for i := range spec.Steps {
		if err := validateStepFields(&spec.Steps[i], i); err != nil {
			return err
		}
	}

	if err := validateUniqueness(spec.Steps); err != nil {
		return err
	}

	byTempID := make(map[string]*domain.StepSpec, len(spec.Steps))
	for i := range spec.Steps {
		byTempID[spec.Steps[i].TempID] = &spec.Steps[i]
	}

	if err := validateReferences(spec.Steps, byTempID); err != nil {
		return err
	}

	if err := validateChainShape(spec.Steps); err != nil {
		return err
	}

	return validateStepValidations(spec.Steps)
}

// validateStepFields проверяет обязательные поля шага.
func validateStepFields(step *domain.StepSpec, index int) error {
	if strings.TrimSpace(step.TempID) == "" {
		return NewDefinitionError("", "temp_id",
			fmt.Sprintf("step %d has empty temp_id", index), ErrEmptyTempID)
	}

	if strings.TrimSpace(step.Name) == "" {
		return NewDefinitionError(step.TempID, "name", "step has empty name", ErrEmptyStepName)
	}

	if !step.ActionType.IsValid() {
		return NewDefinitionError(step.TempID, "action_type",
			fmt.Sprintf("unknown action type: %q", step.ActionType), ErrUnknownActionType)
	}

	return nil
}

// validateUniqueness проверяет уникальность temp_id, имён и order.
func validateUniqueness(steps []domain.StepSpec) error {
	if dups := duplicates(steps, func(s *domain.StepSpec) string { return s.TempID }); len(dups) > 0 {
		return NewDefinitionError("", "temp_id",
			"Duplicate step temp ids found: "+strings.Join(dups, ", "), ErrDuplicateTempID)
	}

	if dups := duplicates(steps, func(s *domain.StepSpec) string { return s.Name }); len(dups) > 0 {
		return NewDefinitionError("", "name",
			"Duplicate step names found: "+strings.Join(dups, ", "), ErrDuplicateStepName)
	}

	orderKey := func(s *domain.StepSpec) string { return fmt.Sprint(s.Order) }
	if dups := duplicates(steps, orderKey); len(dups) > 0 {
		return NewDefinitionError("", "order",
			"Duplicate step orders found: "+strings.Join(dups, ", "), ErrDuplicateOrder)
	}

	return nil
}

// duplicates возвращает повторяющиеся ключи в порядке первого повтора.
func duplicates(steps []domain.StepSpec, key func(*domain.StepSpec) string) []string {
	seen := make(map[string]int, len(steps))
	var dups []string
	for i := range steps {
		k := key(&steps[i])
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// validateReferences проверяет ссылки next_step_temp_id.
//
// Каждое правило проходит по всем шагам, прежде чем проверяется следующее.
func validateReferences(steps []domain.StepSpec, byTempID map[string]*domain.StepSpec) error {
	for i := range steps {
		s := &steps[i]
		if s.NextStepTempID != "" && s.NextStepTempID == s.TempID {
			return NewDefinitionError(s.TempID, "next_step_temp_id",
				fmt.Sprintf("Step '%s' cannot reference itself as next step", s.Name), ErrSelfReference)
		}
	}

	for i := range steps {
		s := &steps[i]
		if s.NextStepTempID == "" {
			continue
		}
		if _, ok := byTempID[s.NextStepTempID]; !ok {
			return NewDefinitionError(s.TempID, "next_step_temp_id",
				fmt.Sprintf("Step '%s' references invalid next step temp id: '%s'", s.Name, s.NextStepTempID),
				ErrUnknownSuccessor)
		}
	}

	for i := range steps {
		s := &steps[i]
		if s.NextStepTempID == "" {
			continue
		}
		next := byTempID[s.NextStepTempID]
		if next.Order <= s.Order {
			return NewDefinitionError(s.TempID, "next_step_temp_id",
				fmt.Sprintf("Step '%s' (order %d) cannot reference step '%s' (order %d). Next step must have a higher order number.",
					s.Name, s.Order, next.TempID, next.Order),
				ErrBackwardReference)
		}
	}

	return nil
}

// validateChainShape проверяет, что шаги образуют одну цепочку.
//
// Ссылки уже разрешены и идут строго вперёд по order, поэтому циклов нет.
// Остаётся проверить число терминальных шагов и отсутствие слияний.
func validateChainShape(steps []domain.StepSpec) error {
	terminal := 0
	for i := range steps {
		if steps[i].NextStepTempID == "" {
			terminal++
		}
	}
	if terminal != 1 {
		return NewDefinitionError("", "next_step_temp_id",
			fmt.Sprintf("workflow must have exactly one final step, found %d", terminal), ErrTerminalStepCount)
	}

	referrers := make(map[string]string, len(steps))
	for i := range steps {
		s := &steps[i]
		if s.NextStepTempID == "" {
			continue
		}
		if prev, ok := referrers[s.NextStepTempID]; ok {
			return NewDefinitionError(s.TempID, "next_step_temp_id",
				fmt.Sprintf("steps '%s' and '%s' both reference '%s'", prev, s.TempID, s.NextStepTempID),
				ErrMultipleRoots)
		}
		referrers[s.NextStepTempID] = s.TempID
	}

	return nil
}

// validateStepValidations проверяет конфигурации проверок всех шагов.
func validateStepValidations(steps []domain.StepSpec) error {
	for i := range steps {
		s := &steps[i]
		for j, v := range s.Validations {
			if _, err := domain.DecodeValidationData(v.Type, v.Data); err != nil {
				return NewDefinitionError(s.TempID, fmt.Sprintf("validations[%d]", j),
					err.Error(), fmt.Errorf("%w: %w", ErrInvalidValidation, err))
			}
		}
	}
	return nil
}
