// Package notifier превращает события процессов в уведомления.
//
// Notifier — обработчик очереди processes.notifications. Для каждого
// события определяет адресата (роль шага) и текст, затем передаёт
// уведомление в Sender. Доставка (почта, мессенджер) находится за
// интерфейсом Sender; LogSender только пишет уведомления в лог.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/mq"
	"github.com/shaiso/Tracker/internal/telemetry"
)

// Kind — вид уведомления.
type Kind string

const (
	// KindAssigned — процесс ждёт действия роли.
	KindAssigned Kind = "assigned"

	// KindInformed — процесс дошёл до информационного шага.
	KindInformed Kind = "informed"

	// KindCompleted — процесс завершён.
	KindCompleted Kind = "completed"

	// KindRejected — процесс отклонён.
	KindRejected Kind = "rejected"
)

// Notification — уведомление для роли.
type Notification struct {
	Kind      Kind
	ProcessID int64
	Role      uuid.UUID
	StepName  string
	Text      string
}

// Sender доставляет уведомления.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender пишет уведомления в лог.
type LogSender struct {
	Logger *slog.Logger
}

// Send пишет уведомление в лог.
func (s LogSender) Send(_ context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	telemetry.WithProcessID(logger, n.ProcessID).Info("notification",
		"kind", n.Kind,
		"role", n.Role,
		"step", n.StepName,
		"text", n.Text,
	)
	return nil
}

// Notifier обрабатывает события процессов.
type Notifier struct {
	sender Sender
	logger *slog.Logger
}

// New создаёт новый Notifier.
func New(sender Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	return &Notifier{sender: sender, logger: logger}
}

// Handle — mq.Handler для очереди processes.notifications.
//
// Сообщения неизвестного типа подтверждаются без уведомления.
// Ошибка разбора или доставки возвращается, и Consumer повторяет
// сообщение один раз перед отправкой в DLQ.
func (n *Notifier) Handle(ctx context.Context, d *mq.Delivery) error {
	event, err := mq.ParsePayload[mq.ProcessEvent](&d.Message)
	if err != nil {
		return fmt.Errorf("parse process event: %w", err)
	}

	notification, ok := Build(d.Message.Type, event)
	if !ok {
		n.logger.Debug("skipping message", "type", d.Message.Type, "message_id", d.Message.ID)
		return nil
	}

	if err := n.sender.Send(ctx, notification); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	telemetry.NotificationsSent.WithLabelValues(string(notification.Kind)).Inc()
	return nil
}

// Build формирует уведомление для события.
// Возвращает false, если событие не требует уведомления.
func Build(msgType mq.MessageType, e mq.ProcessEvent) (Notification, bool) {
	n := Notification{
		ProcessID: e.ProcessID,
		Role:      e.AssignedRole,
		StepName:  e.StepName,
	}

	switch msgType {
	case mq.MessageTypeProcessStarted, mq.MessageTypeProcessAdvanced:
		if domain.ActionType(e.ActionType) == domain.ActionTypeNotification {
			n.Kind = KindInformed
			n.Text = fmt.Sprintf("Process %d reached step '%s' for your information", e.ProcessID, e.StepName)
		} else {
			n.Kind = KindAssigned
			n.Text = fmt.Sprintf("Process %d is waiting for your action at step '%s'", e.ProcessID, e.StepName)
		}
	case mq.MessageTypeProcessCompleted:
		n.Kind = KindCompleted
		n.Text = fmt.Sprintf("Process %d completed at step '%s'", e.ProcessID, e.StepName)
	case mq.MessageTypeProcessRejected:
		n.Kind = KindRejected
		n.Text = fmt.Sprintf("Process %d rejected at step '%s'", e.ProcessID, e.StepName)
		if e.Comment != "" {
			n.Text += ": " + e.Comment
		}
	default:
		return Notification{}, false
	}

	return n, true
}
