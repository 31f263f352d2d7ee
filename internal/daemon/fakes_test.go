package daemon

import (
	"context"
	"sync"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/oracle"
)

type fakeEngine struct {
	mu       sync.Mutex
	report   *domain.Report
	analysis *domain.Analysis
	question *oracle.Question
	err      error

	lastUser    string
	lastMode    domain.Mode
	lastTopic   string
	lastHistory domain.History
}

func (f *fakeEngine) record(userID string, mode domain.Mode, topic string, h domain.History) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser, f.lastMode, f.lastTopic, f.lastHistory = userID, mode, topic, h
}

func (f *fakeEngine) ComputeReport(ctx context.Context, mode domain.Mode, topic string, h domain.History) (*domain.Report, error) {
	f.record("", mode, topic, h)
	return f.report, f.err
}

func (f *fakeEngine) Analyze(ctx context.Context, userID string, mode domain.Mode, topic string, h domain.History) (*domain.Analysis, error) {
	f.record(userID, mode, topic, h)
	return f.analysis, f.err
}

func (f *fakeEngine) NextQuestion(ctx context.Context, mode domain.Mode, topic string, h domain.History) (*oracle.Question, error) {
	f.record("", mode, topic, h)
	return f.question, f.err
}

type fakeProgress struct {
	mu      sync.Mutex
	records map[string]*domain.Progress
	err     error
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{records: make(map[string]*domain.Progress)}
}

func (f *fakeProgress) FindByID(ctx context.Context, userID string) (*domain.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.records[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p.Clone(), nil
}

func (f *fakeProgress) Register(ctx context.Context, userID string) (*domain.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.records[userID]; !ok {
		f.records[userID] = &domain.Progress{UserID: userID}
	}
	return f.records[userID].Clone(), nil
}

type fakeActivities struct {
	items     []domain.Activity
	err       error
	lastLimit int
}

func (f *fakeActivities) ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Activity
	for _, a := range f.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
