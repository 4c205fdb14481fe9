package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeProcessStarted   MessageType = "process.started"
	MessageTypeProcessAdvanced  MessageType = "process.advanced"
	MessageTypeProcessCompleted MessageType = "process.completed"
	MessageTypeProcessRejected  MessageType = "process.rejected"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ProcessEvent — payload событий процесса.
//
// Шаг в событии:
//   - process.started, process.advanced — шаг, на котором процесс теперь стоит
//   - process.completed, process.rejected — шаг, на котором было действие
type ProcessEvent struct {
	ProcessID    int64     `json:"process_id"`
	WorkflowID   uuid.UUID `json:"workflow_id"`
	Status       string    `json:"status"`
	StepID       int64     `json:"step_id"`
	StepName     string    `json:"step_name"`
	ActionType   string    `json:"action_type"`
	AssignedRole uuid.UUID `json:"assigned_role"`
	UserID       uuid.UUID `json:"user_id"`
	Action       string    `json:"action,omitempty"`
	Comment      string    `json:"comment,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishProcessEvent публикует событие процесса.
// Routing key совпадает с типом сообщения.
// Потребитель: tracker-notifier.
func (p *Publisher) PublishProcessEvent(ctx context.Context, msgType MessageType, event ProcessEvent) error {
	msg := NewMessage(msgType, event)
	return p.Publish(ctx, ExchangeProcesses, RoutingKey(msgType), msg)
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
