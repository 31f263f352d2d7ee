package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/weboryskills/practice/internal/award"
	"github.com/weboryskills/practice/internal/domain"
)

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers       int           // Number of concurrent workers
	Prefetch      int           // Prefetch count for the channel
	AppendTimeout time.Duration // Bound on one store append
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:       3,
		Prefetch:      1,
		AppendTimeout: 10 * time.Second,
	}
}

// deliverySource hands out activity subscriptions and tells when a new
// one can be taken after the connection came back
type deliverySource interface {
	ConsumeActivities(prefetch int) (<-chan amqp.Delivery, error)
	NotifyReconnect() <-chan struct{}
}

// ActivityConsumer drains the activity queue into a store
type ActivityConsumer struct {
	source     deliverySource
	store      award.ActivityLog
	cfg        ConsumerConfig
	logger     *slog.Logger
	backoff    func(attempt int) time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewActivityConsumer creates a consumer writing into store
func NewActivityConsumer(conn *Connection, store award.ActivityLog, cfg ConsumerConfig, logger *slog.Logger) *ActivityConsumer {
	return newActivityConsumer(conn, store, cfg, logger)
}

func newActivityConsumer(source deliverySource, store award.ActivityLog, cfg ConsumerConfig, logger *slog.Logger) *ActivityConsumer {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.AppendTimeout <= 0 {
		cfg.AppendTimeout = def.AppendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ActivityConsumer{
		source:  source,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		backoff: reconnectBackoff,
	}
}

// Start subscribes to the activity queue and keeps a worker pool on it,
// subscribing again whenever the connection is re-established
func (c *ActivityConsumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	reconnected := c.source.NotifyReconnect()
	msgs, err := c.source.ConsumeActivities(c.cfg.Prefetch)
	if err != nil {
		c.cancelFunc()
		return err
	}

	c.logger.Info("starting activity consumer", "workers", c.cfg.Workers, "prefetch", c.cfg.Prefetch)

	c.wg.Add(1)
	go c.run(ctx, msgs, reconnected)
	return nil
}

func (c *ActivityConsumer) run(ctx context.Context, msgs <-chan amqp.Delivery, reconnected <-chan struct{}) {
	defer c.wg.Done()

	for {
		c.drain(ctx, msgs)
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("activity subscription lost, waiting for reconnect")
		var ok bool
		if msgs, ok = c.resubscribe(ctx, reconnected); !ok {
			return
		}
		c.logger.Info("activity consumer resubscribed")
	}
}

// drain runs the workers until msgs closes or ctx ends
func (c *ActivityConsumer) drain(ctx context.Context, msgs <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.worker(ctx, id, msgs)
		}(i)
	}
	wg.Wait()
}

// resubscribe retries on every reconnect signal and on a backoff timer, so
// a signal sent before the old deliveries drained is not needed
func (c *ActivityConsumer) resubscribe(ctx context.Context, reconnected <-chan struct{}) (<-chan amqp.Delivery, bool) {
	for attempt := 0; ; attempt++ {
		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false
		case <-reconnected:
			timer.Stop()
		case <-timer.C:
		}

		msgs, err := c.source.ConsumeActivities(c.cfg.Prefetch)
		if err == nil {
			return msgs, true
		}
		c.logger.Warn("activity resubscribe failed", "attempt", attempt+1, "error", err)
	}
}

func (c *ActivityConsumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed", "worker_id", id)
				return
			}
			c.handle(ctx, id, msg)
		}
	}
}

// handle acks stored activities, requeues on store failure and drops
// messages that cannot be decoded
func (c *ActivityConsumer) handle(ctx context.Context, workerID int, msg amqp.Delivery) {
	var a domain.Activity
	if err := json.Unmarshal(msg.Body, &a); err != nil || a.UserID == "" {
		c.logger.Error("dropping malformed activity",
			"worker_id", workerID,
			"error", err)
		_ = msg.Reject(false)
		return
	}

	appendCtx, cancel := context.WithTimeout(ctx, c.cfg.AppendTimeout)
	defer cancel()

	if err := c.store.Append(appendCtx, a); err != nil {
		c.logger.Warn("activity append failed, requeueing",
			"worker_id", workerID,
			"activity_id", a.ID,
			"error", err)
		_ = msg.Nack(false, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("failed to ack activity",
			"worker_id", workerID,
			"activity_id", a.ID,
			"error", err)
	}
}

// Stop gracefully stops the consumer
func (c *ActivityConsumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("activity consumer stopped")
}
