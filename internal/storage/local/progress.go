package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/weboryskills/practice/internal/award"
	"github.com/weboryskills/practice/internal/domain"
)

const (
	progressCollection = "progress"
	activityCollection = "activities"
)

// ProgressStore keeps one JSON document per user
type ProgressStore struct {
	store *Store
	now   func() time.Time
}

// NewProgressStore creates a file-backed progress store
func NewProgressStore(store *Store) *ProgressStore {
	return &ProgressStore{store: store, now: time.Now}
}

func (s *ProgressStore) FindByID(ctx context.Context, userID string) (*domain.Progress, error) {
	var p domain.Progress
	if err := s.store.Load(progressCollection, userID, &p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("load progress: %w: %w", domain.ErrPersistence, err)
	}
	return &p, nil
}

func (s *ProgressStore) Register(ctx context.Context, userID string) (*domain.Progress, error) {
	var p domain.Progress
	err := s.store.Update(progressCollection, userID, &p, func(found bool) error {
		if !found {
			p = *domain.NewProgress(userID, s.now())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("register progress: %w: %w", domain.ErrPersistence, err)
	}
	return &p, nil
}

// HasCompleted reads the user's document
func (s *ProgressStore) HasCompleted(ctx context.Context, userID, fingerprint string) (bool, error) {
	p, err := s.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.HasCompleted(fingerprint), nil
}

// ApplyAward runs fn and writes its result under the store lock
func (s *ProgressStore) ApplyAward(ctx context.Context, userID, fingerprint string, fn award.AwardFunc) (*domain.Progress, error) {
	var (
		p     domain.Progress
		next  *domain.Progress
		fnErr error
	)
	err := s.store.Update(progressCollection, userID, &p, func(found bool) error {
		if !found {
			return domain.ErrUserNotFound
		}
		if p.HasCompleted(fingerprint) {
			return domain.ErrAlreadyAwarded
		}
		if next, fnErr = fn(p.Clone()); fnErr != nil {
			return fnErr
		}
		p = *next.Clone()
		if !p.HasCompleted(fingerprint) {
			p.CompletedSessions = append(p.CompletedSessions, fingerprint)
		}
		return nil
	})
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, domain.ErrAlreadyAwarded):
		return &p, err
	case errors.Is(err, domain.ErrUserNotFound), fnErr != nil:
		return nil, err
	default:
		return nil, fmt.Errorf("apply award: %w: %w", domain.ErrPersistence, err)
	}
}

// ActivityStore keeps activities as one document each, grouped per user
type ActivityStore struct {
	store *Store
}

// NewActivityStore creates a file-backed activity log
func NewActivityStore(store *Store) *ActivityStore {
	return &ActivityStore{store: store}
}

func (s *ActivityStore) Append(ctx context.Context, a domain.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := s.store.SaveIn(activityCollection, a.UserID, a.ID.String(), a); err != nil {
		return fmt.Errorf("append activity: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// ListActivities returns the newest activities first
func (s *ActivityStore) ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	ids, err := s.store.ListIn(activityCollection, userID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w: %w", domain.ErrPersistence, err)
	}

	activities := make([]domain.Activity, 0, len(ids))
	for _, id := range ids {
		var a domain.Activity
		if err := s.store.LoadIn(activityCollection, userID, id, &a); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load activity %s: %w: %w", id, domain.ErrPersistence, err)
		}
		activities = append(activities, a)
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}
