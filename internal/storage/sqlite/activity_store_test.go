package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/weboryskills/practice/internal/domain"
)

func TestActivityStore_AppendAndList(t *testing.T) {
	store := NewActivityStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := store.Append(ctx, domain.Activity{
			ID:                uuid.New(),
			UserID:            "u1",
			Kind:              domain.ActivityKindPractice,
			Mode:              domain.ModeAptitude,
			Topic:             "logic",
			QuestionsAnswered: i + 1,
			XPEarned:          i,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := store.Append(ctx, domain.Activity{UserID: "u2", Kind: domain.ActivityKindPractice, CreatedAt: base}); err != nil {
		t.Fatalf("Append() without ID error = %v", err)
	}

	got, err := store.ListActivities(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListActivities() len = %d; want 2", len(got))
	}
	if got[0].QuestionsAnswered != 3 || got[1].QuestionsAnswered != 2 {
		t.Errorf("order = %d, %d; want newest first", got[0].QuestionsAnswered, got[1].QuestionsAnswered)
	}
	if got[0].Mode != domain.ModeAptitude || got[0].Topic != "logic" {
		t.Errorf("activity = %+v", got[0])
	}
}

func TestActivityStore_AppendReplayIgnored(t *testing.T) {
	store := NewActivityStore(openTestDB(t))
	ctx := context.Background()

	a := domain.Activity{ID: uuid.New(), UserID: "u1", Kind: domain.ActivityKindPractice, CreatedAt: time.Now()}
	for i := 0; i < 2; i++ {
		if err := store.Append(ctx, a); err != nil {
			t.Fatalf("Append() #%d error = %v", i, err)
		}
	}

	got, _ := store.ListActivities(ctx, "u1", 0)
	if len(got) != 1 {
		t.Errorf("ListActivities() len = %d; want 1", len(got))
	}
}

func TestActivityStore_ListEmpty(t *testing.T) {
	store := NewActivityStore(openTestDB(t))

	got, err := store.ListActivities(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListActivities() = %#v; want empty slice", got)
	}
}
