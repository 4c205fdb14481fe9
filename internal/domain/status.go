package domain

// ProcessStatus — статус процесса.
//
// Жизненный цикл:
//
//	ACTIVE → COMPLETED
//	       ↘ REJECTED
type ProcessStatus string

const (
	// ProcessStatusActive — процесс ожидает действия на текущем шаге.
	ProcessStatusActive ProcessStatus = "ACTIVE"

	// ProcessStatusCompleted — пройден терминальный шаг.
	ProcessStatusCompleted ProcessStatus = "COMPLETED"

	// ProcessStatusRejected — процесс отклонён на одном из шагов.
	ProcessStatusRejected ProcessStatus = "REJECTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ProcessStatus) IsTerminal() bool {
	switch s {
	case ProcessStatusCompleted, ProcessStatusRejected:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус известен.
func (s ProcessStatus) IsValid() bool {
	switch s {
	case ProcessStatusActive, ProcessStatusCompleted, ProcessStatusRejected:
		return true
	default:
		return false
	}
}

// ActionType — тип шага workflow.
type ActionType string

const (
	// ActionTypeInput — шаг требует ввода данных пользователем.
	ActionTypeInput ActionType = "Input"

	// ActionTypeApproval — шаг согласования.
	ActionTypeApproval ActionType = "Approval"

	// ActionTypeNotification — информационный шаг.
	ActionTypeNotification ActionType = "Notification"
)

// IsValid проверяет, что тип шага известен.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionTypeInput, ActionTypeApproval, ActionTypeNotification:
		return true
	default:
		return false
	}
}

// UserAction — действие пользователя на текущем шаге.
//
// Множество действий закрытое: Approve и Submit продвигают процесс,
// Reject завершает его.
type UserAction string

const (
	ActionApprove UserAction = "Approve"
	ActionSubmit  UserAction = "Submit"
	ActionReject  UserAction = "Reject"
)

// IsApproveLike возвращает true для действий, продвигающих процесс вперёд.
func (a UserAction) IsApproveLike() bool {
	return a == ActionApprove || a == ActionSubmit
}

// IsValid проверяет, что действие известно.
func (a UserAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionSubmit, ActionReject:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление действия.
func (a UserAction) String() string {
	return string(a)
}

// ValidationType — тип пользовательской проверки.
type ValidationType string

const (
	// ValidationTypeAPI — вызов внешнего API с шаблонным запросом.
	ValidationTypeAPI ValidationType = "API"

	// ValidationTypeDatabase — SQL-запрос к именованной базе данных.
	ValidationTypeDatabase ValidationType = "Database"

	// ValidationTypeExpression — булево выражение над контекстом выполнения.
	ValidationTypeExpression ValidationType = "Expression"
)

// ValidationTypes возвращает все известные типы проверок.
func ValidationTypes() []ValidationType {
	return []ValidationType{
		ValidationTypeAPI,
		ValidationTypeDatabase,
		ValidationTypeExpression,
	}
}

// IsValid проверяет, что тип проверки известен.
func (t ValidationType) IsValid() bool {
	switch t {
	case ValidationTypeAPI, ValidationTypeDatabase, ValidationTypeExpression:
		return true
	default:
		return false
	}
}
