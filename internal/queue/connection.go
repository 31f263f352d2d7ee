// Package queue carries activity log entries over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ActivityQueueName is the durable queue activities are published to
const ActivityQueueName = "practice.activity"

// maxReconnectAttempts bounds one reconnect cycle
const maxReconnectAttempts = 10

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
	logger     *slog.Logger

	reconnected []chan struct{}
}

// NewConnection dials RabbitMQ and declares the activity queue
func NewConnection(url string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{url: url, logger: logger}

	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareQueues(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = ch
	go c.handleReconnect(conn)

	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		ActivityQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare activity queue: %w", err)
	}
	return nil
}

// handleReconnect waits for conn to drop and redials with backoff
func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	c.logger.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects)

	for i := 0; i < maxReconnectAttempts; i++ {
		time.Sleep(reconnectBackoff(i))

		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()

		if err := c.connect(); err != nil {
			c.logger.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}
		c.logger.Info("reconnected to RabbitMQ", "attempts", i+1)
		c.signalReconnect()
		return
	}

	c.logger.Error("failed to reconnect to RabbitMQ", "attempts", maxReconnectAttempts)
}

// reconnectBackoff doubles from one second, capped at thirty
func reconnectBackoff(attempt int) time.Duration {
	return min(time.Duration(1<<attempt)*time.Second, 30*time.Second)
}

// NotifyReconnect returns a channel that receives a value after each
// successful reconnect. Signals are dropped while one is still pending.
func (c *Connection) NotifyReconnect() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.reconnected = append(c.reconnected, ch)
	c.mu.Unlock()
	return ch
}

func (c *Connection) signalReconnect() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.reconnected {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ConsumeActivities subscribes to the activity queue on the current channel.
// The returned channel closes when that channel or the connection goes away.
func (c *Connection) ConsumeActivities(prefetch int) (<-chan amqp.Delivery, error) {
	ch := c.Channel()
	if ch == nil {
		return nil, fmt.Errorf("consume %s: no open channel", ActivityQueueName)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		ActivityQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}

// Channel returns the current channel
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a persistent JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch := c.Channel()
	if ch == nil {
		return fmt.Errorf("publish to %s: no open channel", queue)
	}

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL drops credentials before logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid-url"
	}
	return u.Redacted()
}
