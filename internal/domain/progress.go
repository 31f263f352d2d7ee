package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Streak tracks consecutive calendar days with an awarded session
type Streak struct {
	Count          int        `json:"count"`
	LastActiveDate *time.Time `json:"lastActiveDate,omitempty"`
}

// Progress is the long-lived per-user XP and streak record
type Progress struct {
	UserID            string    `json:"userId"`
	XP                int       `json:"xp"`
	Streak            Streak    `json:"streak"`
	CompletedSessions []string  `json:"completedSessions,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewProgress returns the record created at registration
func NewProgress(userID string, now time.Time) *Progress {
	return &Progress{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasCompleted reports whether a session fingerprint was already awarded
func (p *Progress) HasCompleted(fingerprint string) bool {
	return slices.Contains(p.CompletedSessions, fingerprint)
}

// Clone returns a deep copy so callers can mutate without touching the
// stored value
func (p *Progress) Clone() *Progress {
	c := *p
	c.CompletedSessions = slices.Clone(p.CompletedSessions)
	if p.Streak.LastActiveDate != nil {
		t := *p.Streak.LastActiveDate
		c.Streak.LastActiveDate = &t
	}
	return &c
}

// ActivityKindPractice is the activity kind appended per awarded session
const ActivityKindPractice = "practice_session"

// Activity is an append-only log entry about learner activity
type Activity struct {
	ID                uuid.UUID `json:"id"`
	UserID            string    `json:"userId"`
	Kind              string    `json:"kind"`
	Mode              Mode      `json:"mode"`
	Topic             string    `json:"topic"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	XPEarned          int       `json:"xpEarned"`
	CreatedAt         time.Time `json:"createdAt"`
}
