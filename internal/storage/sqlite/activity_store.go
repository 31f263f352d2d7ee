package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/weboryskills/practice/internal/domain"
)

// DefaultActivityLimit caps ListActivities when no limit is given
const DefaultActivityLimit = 20

// ActivityStore implements the append-only activity log backed by SQLite.
type ActivityStore struct {
	db *DB
}

// NewActivityStore creates a new SQLite-backed activity store.
func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Append inserts one activity. Replays of the same ID are ignored.
func (s *ActivityStore) Append(ctx context.Context, a domain.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, kind, mode, topic, questions_answered, xp_earned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID.String(), a.UserID, a.Kind, string(a.Mode), a.Topic, a.QuestionsAnswered, a.XPEarned, a.CreatedAt)
	if err != nil {
		return persistence("insert activity", err)
	}
	return nil
}

// ListActivities returns the newest activities of a user first.
func (s *ActivityStore) ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, mode, topic, questions_answered, xp_earned, created_at
		FROM activities WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, persistence("query activities", err)
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		var (
			a    domain.Activity
			id   string
			mode string
		)
		if err := rows.Scan(&id, &a.UserID, &a.Kind, &mode, &a.Topic, &a.QuestionsAnswered, &a.XPEarned, &a.CreatedAt); err != nil {
			return nil, persistence("scan activity", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, persistence("parse activity id", err)
		}
		a.Mode = domain.Mode(mode)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("iterate activities", err)
	}
	return activities, nil
}
