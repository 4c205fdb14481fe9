package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Tracker/internal/telemetry"
)

// Handler обрабатывает одно сообщение.
// Ошибка означает, что сообщение не обработано.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — сообщение, полученное из очереди.
type Delivery struct {
	Message Message

	// Redelivered — сообщение уже доставлялось и было возвращено в очередь.
	Redelivered bool
}

// disposition — что сделать с сообщением после обработки.
type disposition string

const (
	dispositionAck        disposition = "ack"
	dispositionRequeue    disposition = "requeue"
	dispositionDeadLetter disposition = "dead_letter"
)

// settle выбирает исход: успех подтверждается, первая ошибка
// возвращает сообщение в очередь, повторная отправляет в DLQ.
func settle(handlerErr error, redelivered bool) disposition {
	switch {
	case handlerErr == nil:
		return dispositionAck
	case redelivered:
		return dispositionDeadLetter
	default:
		return dispositionRequeue
	}
}

// Consumer читает очередь и передаёт сообщения в Handler.
// Подтверждение ручное; после переподключения Connection потребление возобновляется.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	tag      string
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Tag — consumer tag (пусто = сгенерирует брокер).
	Tag string

	// Prefetch — сколько неподтверждённых сообщений держать (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		tag:      cfg.Tag,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет сообщения до отмены ctx. Блокирует вызывающего.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("consumer interrupted, waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.Reconnected():
		}
	}
}

// subscribe выставляет prefetch и подписывается на очередь.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(string(c.queue), c.tag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

// drain обрабатывает сообщения, пока канал доставки открыт.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, raw)
		}
	}
}

// handle обрабатывает одно сообщение.
// Сообщение, которое не разбирается как Message, сразу уходит в DLQ.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message", "error", err, "body", truncateBody(raw.Body))
		c.finish(raw, dispositionDeadLetter)
		return
	}

	logger := c.logger.With("message_id", msg.ID, "type", msg.Type)
	logger.Debug("received message", "redelivered", raw.Redelivered)

	err := c.invoke(ctx, &Delivery{Message: msg, Redelivered: raw.Redelivered})
	if err != nil {
		logger.Error("handler failed", "error", err, "redelivered", raw.Redelivered)
	}
	c.finish(raw, settle(err, raw.Redelivered))
}

// invoke вызывает handler; паника считается ошибкой обработки.
func (c *Consumer) invoke(ctx context.Context, d *Delivery) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return c.handler(ctx, d)
}

func (c *Consumer) finish(raw amqp.Delivery, d disposition) {
	var err error
	switch d {
	case dispositionAck:
		err = raw.Ack(false)
	case dispositionRequeue:
		err = raw.Nack(false, true)
	case dispositionDeadLetter:
		err = raw.Nack(false, false)
	}
	if err != nil {
		c.logger.Warn("failed to settle message", "disposition", d, "error", err)
	}
	telemetry.MessagesConsumed.WithLabelValues(string(c.queue), string(d)).Inc()
}

func truncateBody(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

// ParsePayload декодирует payload сообщения в T.
//
//	event, err := mq.ParsePayload[mq.ProcessEvent](&delivery.Message)
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После json.Unmarshal в Message payload — map[string]any
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
