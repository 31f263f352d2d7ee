package award

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/oracle"
)

// memStore is an in-memory ProgressStore; ApplyAward runs under one mutex
type memStore struct {
	mu      sync.Mutex
	records map[string]*domain.Progress
	saves   int
	findErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*domain.Progress)}
}

func (s *memStore) FindByID(ctx context.Context, userID string) (*domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	p, ok := s.records[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p.Clone(), nil
}

func (s *memStore) Register(ctx context.Context, userID string) (*domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.records[userID]; ok {
		return p.Clone(), nil
	}
	p := domain.NewProgress(userID, time.Now())
	s.records[userID] = p
	return p.Clone(), nil
}

func (s *memStore) HasCompleted(ctx context.Context, userID, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return false, s.findErr
	}
	p, ok := s.records[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	return p.HasCompleted(fingerprint), nil
}

func (s *memStore) ApplyAward(ctx context.Context, userID, fingerprint string, fn AwardFunc) (*domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	stored, ok := s.records[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if stored.HasCompleted(fingerprint) {
		return stored.Clone(), domain.ErrAlreadyAwarded
	}
	next, err := fn(stored.Clone())
	if err != nil {
		return nil, err
	}
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.records[userID] = next.Clone()
	s.saves++
	return next, nil
}

func (s *memStore) get(userID string) *domain.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[userID].Clone()
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// memActivity records appended activities
type memActivity struct {
	mu    sync.Mutex
	items []domain.Activity
	err   error
	ctxOK bool
}

func (a *memActivity) Append(ctx context.Context, act domain.Activity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctxOK = ctx.Err() == nil
	if a.err != nil {
		return a.err
	}
	a.items = append(a.items, act)
	return nil
}

func (a *memActivity) all() []domain.Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Activity(nil), a.items...)
}

// fakeOracle returns a fixed assessment
type fakeOracle struct {
	mu         sync.Mutex
	assessment oracle.Assessment
	question   oracle.Question
	err        error
	calls      int
}

func (o *fakeOracle) Assess(ctx context.Context, req oracle.AssessRequest) (*oracle.Assessment, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a := o.assessment
	return &a, nil
}

func (o *fakeOracle) NextQuestion(ctx context.Context, req oracle.QuestionRequest) (*oracle.Question, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	q := o.question
	return &q, nil
}

func (o *fakeOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

var errBoom = errors.New("boom")
