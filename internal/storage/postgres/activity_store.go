package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqlc-dev/pqtype"

	"github.com/weboryskills/practice/internal/domain"
)

// DefaultActivityLimit caps ListActivities when no limit is given
const DefaultActivityLimit = 20

// activityMetadata is the JSONB part of an activity row
type activityMetadata struct {
	Mode              domain.Mode `json:"mode"`
	Topic             string      `json:"topic"`
	QuestionsAnswered int         `json:"questionsAnswered"`
}

// ActivityStore implements the activity log using PostgreSQL
type ActivityStore struct {
	pool   *pgxpool.Pool
	tables tables
}

// NewActivityStore creates a new PostgreSQL activity store
func NewActivityStore(pool *pgxpool.Pool, schema string) *ActivityStore {
	return &ActivityStore{pool: pool, tables: newTables(schema)}
}

// Append inserts an activity, ignoring replays of the same ID
func (s *ActivityStore) Append(ctx context.Context, a domain.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	data, err := json.Marshal(activityMetadata{
		Mode:              a.Mode,
		Topic:             a.Topic,
		QuestionsAnswered: a.QuestionsAnswered,
	})
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}
	metadata := pqtype.NullRawMessage{RawMessage: data, Valid: true}

	query := `
		INSERT INTO ` + s.tables.activities + ` (id, user_id, kind, xp_earned, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, a.ID, a.UserID, a.Kind, a.XPEarned, metadata, a.CreatedAt); err != nil {
		return persistence("insert activity", err)
	}
	return nil
}

// ListActivities returns a user's newest activities first
func (s *ActivityStore) ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, kind, xp_earned, metadata, created_at
		FROM `+s.tables.activities+`
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, persistence("select activities", err)
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		var (
			a        domain.Activity
			metadata pqtype.NullRawMessage
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.XPEarned, &metadata, &a.CreatedAt); err != nil {
			return nil, persistence("scan activity", err)
		}
		if metadata.Valid {
			var m activityMetadata
			if err := json.Unmarshal(metadata.RawMessage, &m); err != nil {
				return nil, persistence("decode activity metadata", err)
			}
			a.Mode = m.Mode
			a.Topic = m.Topic
			a.QuestionsAnswered = m.QuestionsAnswered
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("iterate activities", err)
	}
	return activities, nil
}
