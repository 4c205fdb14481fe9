package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Параметры переподключения.
const (
	heartbeat      = 10 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// ErrNoChannel — соединение не установлено или переподключается.
var ErrNoChannel = errors.New("no channel available")

// Connection — AMQP соединение с одним каналом и переподключением.
//
// Канал общий для публикации и потребления. После разрыва
// Connection переподключается в фоне и сигналит через Reconnected.
type Connection struct {
	url    string
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	done        chan struct{}
	closeOnce   sync.Once
	reconnected chan struct{}
}

// NewConnection подключается к RabbitMQ.
// name показывается в management UI как имя соединения (tracker-api, tracker-notifier).
func NewConnection(url, name string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		url:         url,
		name:        name,
		logger:      logger.With("component", "amqp", "connection", name),
		done:        make(chan struct{}),
		reconnected: make(chan struct{}, 1),
	}

	if err := c.dial(); err != nil {
		return nil, err
	}

	go c.supervise()

	return c, nil
}

// dial открывает соединение и канал и подменяет текущие.
func (c *Connection) dial() error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: amqp.Table{"connection_name": c.name},
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	c.logger.Info("connected to RabbitMQ")
	return nil
}

// supervise ждёт разрыва соединения и восстанавливает его до Close.
func (c *Connection) supervise() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		lost := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.done:
			return
		case err := <-lost:
			c.logger.Warn("connection lost", "error", err)
		}

		if !c.redial() {
			return
		}

		select {
		case c.reconnected <- struct{}{}:
		default:
		}
	}
}

// redial переподключается с растущей задержкой.
// Возвращает false, если соединение закрыли во время ожидания.
func (c *Connection) redial() bool {
	for attempt := 0; ; attempt++ {
		delay := backoff(attempt)
		c.logger.Info("reconnecting", "attempt", attempt+1, "delay", delay)

		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		if err := c.dial(); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			continue
		}
		return true
	}
}

// backoff возвращает задержку перед попыткой attempt (с нуля):
// 1s, 2s, 4s, ... но не больше maxBackoff.
func backoff(attempt int) time.Duration {
	d := initialBackoff
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

// Reconnected сигналит после каждого восстановления соединения.
func (c *Connection) Reconnected() <-chan struct{} {
	return c.reconnected
}

// Channel возвращает текущий канал (nil до подключения).
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// IsConnected сообщает, открыто ли соединение. Используется в /healthz.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// WithChannel вызывает fn с текущим каналом.
// Во время переподключения возвращает ErrNoChannel.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := c.Channel()
	if ch == nil || ch.IsClosed() {
		return ErrNoChannel
	}
	return fn(ch)
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()

		var errs []error
		if c.channel != nil && !c.channel.IsClosed() {
			if cerr := c.channel.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("close channel: %w", cerr))
			}
		}
		if c.conn != nil && !c.conn.IsClosed() {
			if cerr := c.conn.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("close connection: %w", cerr))
			}
		}
		err = errors.Join(errs...)

		c.logger.Info("connection closed")
	})
	return err
}
