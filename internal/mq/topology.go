package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeProcesses Exchange = "tracker.processes"
	ExchangeDLQ       Exchange = "tracker.dlq"
)

// Queues — имена очередей.
const (
	QueueNotifications Queue = "processes.notifications"
	QueueDLQ           Queue = "dlq.notifications"
)

// Routing keys. Совпадают с типами сообщений.
const (
	RoutingKeyStarted   RoutingKey = "process.started"
	RoutingKeyAdvanced  RoutingKey = "process.advanced"
	RoutingKeyCompleted RoutingKey = "process.completed"
	RoutingKeyRejected  RoutingKey = "process.rejected"

	// RoutingKeyAllProcesses — все события процессов.
	RoutingKeyAllProcesses RoutingKey = "process.*"

	RoutingKeyDLQ RoutingKey = "notifications"
)

// exchangeDecl, queueDecl, binding — элементы топологии.
type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue

	// deadLetter — куда уходят отклонённые сообщения (пусто = некуда).
	deadLetter Exchange
	dlqKey     RoutingKey
}

type binding struct {
	queue    Queue
	exchange Exchange
	key      RoutingKey
}

// Topology — набор объектов брокера, которые объявляют сервисы.
type Topology struct {
	exchanges []exchangeDecl
	queues    []queueDecl
	bindings  []binding
}

// DefaultTopology — события процессов и очередь уведомлений с DLQ.
func DefaultTopology() Topology {
	return Topology{
		exchanges: []exchangeDecl{
			{ExchangeProcesses, amqp.ExchangeTopic},
			{ExchangeDLQ, amqp.ExchangeDirect},
		},
		queues: []queueDecl{
			{name: QueueNotifications, deadLetter: ExchangeDLQ, dlqKey: RoutingKeyDLQ},
			{name: QueueDLQ},
		},
		bindings: []binding{
			{QueueNotifications, ExchangeProcesses, RoutingKeyAllProcesses},
			{QueueDLQ, ExchangeDLQ, RoutingKeyDLQ},
		},
	}
}

// SetupTopology объявляет DefaultTopology.
// Повторное объявление с теми же параметрами брокер не меняет.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, DefaultTopology().Declare)
}

// Declare объявляет exchanges, очереди и привязки на канале.
// Все объекты durable.
func (t Topology) Declare(ch *amqp.Channel) error {
	for _, ex := range t.exchanges {
		if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	for _, q := range t.queues {
		if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args()); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	for _, b := range t.bindings {
		if err := ch.QueueBind(string(b.queue), string(b.key), string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

func (q queueDecl) args() amqp.Table {
	if q.deadLetter == "" {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange":    string(q.deadLetter),
		"x-dead-letter-routing-key": string(q.dlqKey),
	}
}

// String описывает топологию для логов:
//
//	tracker.processes (topic) -> processes.notifications [process.*] dlx=tracker.dlq
func (t Topology) String() string {
	dlx := make(map[Queue]Exchange, len(t.queues))
	for _, q := range t.queues {
		dlx[q.name] = q.deadLetter
	}
	kinds := make(map[Exchange]string, len(t.exchanges))
	for _, ex := range t.exchanges {
		kinds[ex.name] = ex.kind
	}

	var b strings.Builder
	for i, bd := range t.bindings {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s (%s) -> %s [%s]", bd.exchange, kinds[bd.exchange], bd.queue, bd.key)
		if ex := dlx[bd.queue]; ex != "" {
			fmt.Fprintf(&b, " dlx=%s", ex)
		}
	}
	return b.String()
}
