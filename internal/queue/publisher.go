package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/weboryskills/practice/internal/domain"
)

// jsonPublisher is the part of Connection the publisher needs
type jsonPublisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// ActivityPublisher hands activities to the queue instead of writing
// them directly
type ActivityPublisher struct {
	conn jsonPublisher
}

// NewActivityPublisher creates a publisher on conn
func NewActivityPublisher(conn *Connection) *ActivityPublisher {
	return &ActivityPublisher{conn: conn}
}

// Append publishes the activity to the activity queue
func (p *ActivityPublisher) Append(ctx context.Context, a domain.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := p.conn.PublishJSON(ctx, ActivityQueueName, a); err != nil {
		return fmt.Errorf("failed to publish activity %s: %w", a.ID, err)
	}
	return nil
}
