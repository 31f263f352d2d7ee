package award

import (
	"context"

	"github.com/weboryskills/practice/internal/domain"
)

// AwardFunc derives the awarded record from the stored one. Stores call it
// at most once, inside the same atomic unit that writes its result. The
// completed set of current may be left unloaded.
type AwardFunc func(current *domain.Progress) (*domain.Progress, error)

// ProgressStore persists per-user progress records
type ProgressStore interface {
	// FindByID returns domain.ErrUserNotFound when the user was never registered
	FindByID(ctx context.Context, userID string) (*domain.Progress, error)

	// Register creates the record with zero xp and streak; existing records
	// are returned unchanged
	Register(ctx context.Context, userID string) (*domain.Progress, error)

	// HasCompleted reports whether fingerprint is in the user's completed set
	HasCompleted(ctx context.Context, userID, fingerprint string) (bool, error)

	// ApplyAward loads the record, runs fn on it and writes the result
	// together with fingerprint, all under the store's write lock, so
	// concurrent awards for different sessions never overwrite each other.
	// When the fingerprint is already present fn is not called, nothing is
	// written and the stored record is returned with domain.ErrAlreadyAwarded.
	ApplyAward(ctx context.Context, userID, fingerprint string, fn AwardFunc) (*domain.Progress, error)
}

// ActivityLog is an append-only sink for activity records
type ActivityLog interface {
	Append(ctx context.Context, a domain.Activity) error
}
