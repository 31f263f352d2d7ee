package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weboryskills/practice/internal/award"
	"github.com/weboryskills/practice/internal/domain"
)

// ProgressStore implements award.ProgressStore using PostgreSQL
type ProgressStore struct {
	pool   *pgxpool.Pool
	tables tables
	now    func() time.Time
}

// NewProgressStore creates a new PostgreSQL progress store
func NewProgressStore(pool *pgxpool.Pool, schema string) *ProgressStore {
	return &ProgressStore{pool: pool, tables: newTables(schema), now: time.Now}
}

// FindByID retrieves a progress record and its awarded fingerprints
func (s *ProgressStore) FindByID(ctx context.Context, userID string) (*domain.Progress, error) {
	query := `
		SELECT user_id, xp, streak_count, last_active_date, created_at, updated_at
		FROM ` + s.tables.progress + ` WHERE user_id = $1
	`
	p := &domain.Progress{}
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.XP, &p.Streak.Count, &p.Streak.LastActiveDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, persistence("select progress", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT fingerprint FROM `+s.tables.completedSessions+`
		WHERE user_id = $1 ORDER BY awarded_at, fingerprint`, userID)
	if err != nil {
		return nil, persistence("select completed sessions", err)
	}
	fps, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, persistence("scan completed sessions", err)
	}
	if len(fps) > 0 {
		p.CompletedSessions = fps
	}
	return p, nil
}

// Register inserts a zero progress record unless one exists
func (s *ProgressStore) Register(ctx context.Context, userID string) (*domain.Progress, error) {
	now := s.now()
	query := `
		INSERT INTO ` + s.tables.progress + ` (user_id, xp, streak_count, created_at, updated_at)
		VALUES ($1, 0, 0, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, userID, now); err != nil {
		return nil, persistence("insert progress", err)
	}
	return s.FindByID(ctx, userID)
}

// HasCompleted checks one fingerprint with an EXISTS lookup
func (s *ProgressStore) HasCompleted(ctx context.Context, userID, fingerprint string) (bool, error) {
	return s.hasCompleted(ctx, s.pool, userID, fingerprint)
}

// ApplyAward locks the progress row, computes the award from the locked
// values and writes it with the fingerprint in one transaction
func (s *ProgressStore) ApplyAward(ctx context.Context, userID, fingerprint string, fn award.AwardFunc) (*domain.Progress, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persistence("begin award tx", err)
	}
	defer tx.Rollback(ctx)

	current := &domain.Progress{}
	err = tx.QueryRow(ctx, `
		SELECT user_id, xp, streak_count, last_active_date, created_at, updated_at
		FROM `+s.tables.progress+` WHERE user_id = $1 FOR UPDATE`, userID).Scan(
		&current.UserID, &current.XP, &current.Streak.Count, &current.Streak.LastActiveDate,
		&current.CreatedAt, &current.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, persistence("lock progress", err)
	}

	done, err := s.hasCompleted(ctx, tx, userID, fingerprint)
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

	tag, err := tx.Exec(ctx, `
		INSERT INTO `+s.tables.completedSessions+` (user_id, fingerprint, awarded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, fingerprint) DO NOTHING`,
		userID, fingerprint, next.UpdatedAt)
	if err != nil {
		return nil, persistence("insert completed session", err)
	}
	if tag.RowsAffected() == 0 {
		return current, domain.ErrAlreadyAwarded
	}

	_, err = tx.Exec(ctx, `
		UPDATE `+s.tables.progress+`
		SET xp = $2, streak_count = $3, last_active_date = $4, updated_at = $5
		WHERE user_id = $1`,
		userID, next.XP, next.Streak.Count, next.Streak.LastActiveDate, next.UpdatedAt)
	if err != nil {
		return nil, persistence("update progress", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence("commit award", err)
	}
	return next, nil
}

type rowQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *ProgressStore) hasCompleted(ctx context.Context, q rowQueryer, userID, fingerprint string) (bool, error) {
	var done bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM `+s.tables.completedSessions+` WHERE user_id = $1 AND fingerprint = $2
		) FROM `+s.tables.progress+` WHERE user_id = $1`, userID, fingerprint).Scan(&done)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrUserNotFound
	}
	if err != nil {
		return false, persistence("lookup completed session", err)
	}
	return done, nil
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
