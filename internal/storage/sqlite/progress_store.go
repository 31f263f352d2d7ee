package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/weboryskills/practice/internal/award"
	"github.com/weboryskills/practice/internal/domain"
)

// ProgressStore implements award.ProgressStore backed by SQLite.
type ProgressStore struct {
	db  *DB
	now func() time.Time
}

// NewProgressStore creates a new SQLite-backed progress store.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db, now: time.Now}
}

// FindByID loads a progress record with its completed session fingerprints.
func (s *ProgressStore) FindByID(ctx context.Context, userID string) (*domain.Progress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, xp, streak_count, last_active_date, created_at, updated_at
		FROM progress WHERE user_id = ?`, userID)

	p, err := scanProgress(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint FROM completed_sessions
		WHERE user_id = ? ORDER BY awarded_at, rowid`, userID)
	if err != nil {
		return nil, persistence("query completed sessions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, persistence("scan fingerprint", err)
		}
		p.CompletedSessions = append(p.CompletedSessions, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("iterate completed sessions", err)
	}
	return p, nil
}

// Register creates a zero progress record. It is a no-op for known users.
func (s *ProgressStore) Register(ctx context.Context, userID string) (*domain.Progress, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (user_id, xp, streak_count, created_at, updated_at)
		VALUES (?, 0, 0, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`, userID, now, now)
	if err != nil {
		return nil, persistence("insert progress", err)
	}
	return s.FindByID(ctx, userID)
}

// HasCompleted looks up one fingerprint without loading the completed set.
func (s *ProgressStore) HasCompleted(ctx context.Context, userID, fingerprint string) (bool, error) {
	return hasCompleted(ctx, s.db, userID, fingerprint)
}

// ApplyAward runs the read, fn and both writes in one immediate transaction,
// so a concurrent award from another process waits for the write lock and
// then sees this one's xp.
func (s *ProgressStore) ApplyAward(ctx context.Context, userID, fingerprint string, fn award.AwardFunc) (*domain.Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("begin award tx", err)
	}
	defer tx.Rollback()

	current, err := scanProgress(tx.QueryRowContext(ctx, `
		SELECT user_id, xp, streak_count, last_active_date, created_at, updated_at
		FROM progress WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	done, err := hasCompleted(ctx, tx, userID, fingerprint)
	if err != nil {
		return nil, err
	}
	if done {
		return current, domain.ErrAlreadyAwarded
	}

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}

	var lastActive sql.NullTime
	if next.Streak.LastActiveDate != nil {
		lastActive = sql.NullTime{Time: *next.Streak.LastActiveDate, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE progress SET xp = ?, streak_count = ?, last_active_date = ?, updated_at = ?
		WHERE user_id = ?`,
		next.XP, next.Streak.Count, lastActive, next.UpdatedAt, userID); err != nil {
		return nil, persistence("update progress", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO completed_sessions (user_id, fingerprint, awarded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, fingerprint) DO NOTHING`,
		userID, fingerprint, next.UpdatedAt)
	if err != nil {
		return nil, persistence("insert completed session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return current, domain.ErrAlreadyAwarded
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("commit award", err)
	}
	return next, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// hasCompleted answers ErrUserNotFound for unknown users and otherwise
// whether the fingerprint row exists
func hasCompleted(ctx context.Context, q queryer, userID, fingerprint string) (bool, error) {
	var done bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM completed_sessions WHERE user_id = ? AND fingerprint = ?
		) FROM progress WHERE user_id = ?`, userID, fingerprint, userID).Scan(&done)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrUserNotFound
		}
		return false, persistence("lookup completed session", err)
	}
	return done, nil
}

func scanProgress(row *sql.Row) (*domain.Progress, error) {
	var (
		p          domain.Progress
		lastActive sql.NullTime
	)
	err := row.Scan(&p.UserID, &p.XP, &p.Streak.Count, &lastActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, persistence("scan progress", err)
	}
	if lastActive.Valid {
		t := lastActive.Time
		p.Streak.LastActiveDate = &t
	}
	return &p, nil
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
