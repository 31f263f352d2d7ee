// Package award computes practice session reports and awards XP and
// streaks exactly once per distinct session.
package award

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/oracle"
	"github.com/weboryskills/practice/internal/streak"
)

const tracerName = "github.com/weboryskills/practice/internal/award"

// MaxTopicLength bounds the free-text topic
const MaxTopicLength = 200

// Deps are the collaborators of the engine
type Deps struct {
	Progress ProgressStore
	Activity ActivityLog
	Oracle   oracle.Oracle
}

// Config holds the award rules
type Config struct {
	InterviewXP            int
	AptitudeScoreThreshold int
	Calendar               streak.Calendar

	// ActivityTimeout bounds one background activity append
	ActivityTimeout time.Duration
}

// DefaultConfig returns the standard XP rules and calendar
func DefaultConfig() Config {
	return Config{
		InterviewXP:            DefaultInterviewXP,
		AptitudeScoreThreshold: DefaultAptitudeScoreThreshold,
		Calendar:               streak.DefaultCalendar(),
		ActivityTimeout:        5 * time.Second,
	}
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer sets the tracer, the global provider is used otherwise
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// Engine is the session award engine
type Engine struct {
	progress ProgressStore
	activity ActivityLog
	oracle   oracle.Oracle
	cfg      Config

	now    func() time.Time
	logger *slog.Logger
	tracer trace.Tracer

	locks    *userLocks
	inflight sync.WaitGroup
}

// New creates an engine. Activity may be nil, in which case nothing is logged.
func New(deps Deps, cfg Config, opts ...Option) *Engine {
	if cfg.ActivityTimeout <= 0 {
		cfg.ActivityTimeout = 5 * time.Second
	}

	e := &Engine{
		progress: deps.Progress,
		activity: deps.Activity,
		oracle:   deps.Oracle,
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		locks:    newUserLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeReport scores a finished session. Hard metrics are computed
// locally; the oracle supplies the overall score and feedback.
func (e *Engine) ComputeReport(ctx context.Context, mode domain.Mode, topic string, history domain.History) (*domain.Report, error) {
	ctx, span := e.tracer.Start(ctx, "award.compute_report", trace.WithAttributes(
		attribute.String("practice.mode", string(mode)),
		attribute.String("practice.topic", topic),
		attribute.Int("practice.questions", len(history)),
	))
	defer span.End()

	report, err := e.computeReport(ctx, mode, topic, history)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("practice.overall_score", report.OverallScore))
	return report, nil
}

func (e *Engine) computeReport(ctx context.Context, mode domain.Mode, topic string, history domain.History) (*domain.Report, error) {
	mode, topic, err := validateSession(mode, topic, history)
	if err != nil {
		return nil, err
	}

	metrics := domain.ComputeMetrics(history)

	assessment, err := e.oracle.Assess(ctx, oracle.AssessRequest{
		Mode:    mode,
		Topic:   topic,
		History: history,
		Metrics: metrics,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrOracleFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrOracleFailure, err)
		}
		return nil, err
	}

	return &domain.Report{
		Mode:         mode,
		Topic:        topic,
		Metrics:      metrics,
		OverallScore: domain.ClampScore(assessment.OverallScore),
		Strengths:    firstItems(assessment.Strengths),
		Weaknesses:   firstItems(assessment.Weaknesses),
		Tips:         firstItems(assessment.Tips),
		Summary:      assessment.Summary,
		Model:        assessment.Model,
	}, nil
}

// AwardForSession credits XP and advances the streak for a first-seen
// session. Repeated submissions of the same history are reported as
// already awarded and change nothing.
func (e *Engine) AwardForSession(ctx context.Context, userID string, mode domain.Mode, topic string, history domain.History) (*domain.AwardOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "award.award_for_session", trace.WithAttributes(
		attribute.String("practice.mode", string(mode)),
		attribute.String("practice.topic", topic),
		attribute.Int("practice.questions", len(history)),
	))
	defer span.End()

	out, err := e.awardForSession(ctx, userID, mode, topic, history)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("practice.xp_earned", out.XPEarned),
		attribute.Int("practice.streak_bonus", out.StreakBonus),
		attribute.Bool("practice.already_awarded", out.AlreadyAwarded),
	)
	return out, nil
}

func (e *Engine) awardForSession(ctx context.Context, userID string, mode domain.Mode, topic string, history domain.History) (*domain.AwardOutcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.Invalid("userId", "required")
	}
	mode, topic, err := validateSession(mode, topic, history)
	if err != nil {
		return nil, err
	}

	fingerprint, err := history.Fingerprint()
	if err != nil {
		return nil, domain.Invalid("history", err.Error())
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	var (
		now        time.Time
		xp, bonus  int
		nextStreak domain.Streak
		transition streak.Transition
	)
	updated, err := e.progress.ApplyAward(ctx, userID, fingerprint, func(current *domain.Progress) (*domain.Progress, error) {
		now = e.now()
		xp = e.cfg.XPFor(mode, history)
		nextStreak, bonus, transition = e.cfg.Calendar.Advance(current.Streak, now)

		next := current.Clone()
		next.XP += xp + bonus
		next.Streak = nextStreak
		next.CompletedSessions = append(next.CompletedSessions, fingerprint)
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyAwarded) {
			return e.alreadyAwarded(ctx, userID, updated)
		}
		return nil, persistenceError("apply award", err)
	}

	e.logger.Info("session awarded",
		"user_id", userID,
		"mode", mode,
		"xp_earned", xp,
		"streak_bonus", bonus,
		"streak", nextStreak.Count,
		"transition", transition)

	e.recordActivity(ctx, domain.Activity{
		ID:                uuid.New(),
		UserID:            userID,
		Kind:              domain.ActivityKindPractice,
		Mode:              mode,
		Topic:             topic,
		QuestionsAnswered: len(history),
		XPEarned:          xp + bonus,
		CreatedAt:         now,
	})

	return &domain.AwardOutcome{
		XPEarned:      xp,
		StreakBonus:   bonus,
		TotalXP:       updated.XP,
		CurrentStreak: nextStreak.Count,
	}, nil
}

// Analyze computes the report and then awards the session. Nothing is
// persisted when the oracle fails.
func (e *Engine) Analyze(ctx context.Context, userID string, mode domain.Mode, topic string, history domain.History) (*domain.Analysis, error) {
	ctx, span := e.tracer.Start(ctx, "award.analyze")
	defer span.End()

	if err := e.checkUser(ctx, userID, mode, topic, history); err != nil {
		recordError(span, err)
		return nil, err
	}

	report, err := e.ComputeReport(ctx, mode, topic, history)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	outcome, err := e.AwardForSession(ctx, userID, mode, topic, history)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	return &domain.Analysis{Report: *report, AwardOutcome: *outcome}, nil
}

// checkUser rejects invalid input and unknown users before the oracle is
// consulted. A session that was already awarded passes, its report is still
// returned.
func (e *Engine) checkUser(ctx context.Context, userID string, mode domain.Mode, topic string, history domain.History) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Invalid("userId", "required")
	}
	if _, _, err := validateSession(mode, topic, history); err != nil {
		return err
	}
	fingerprint, err := history.Fingerprint()
	if err != nil {
		return domain.Invalid("history", err.Error())
	}
	if _, err := e.progress.HasCompleted(ctx, userID, fingerprint); err != nil {
		return persistenceError("check progress", err)
	}
	return nil
}

// NextQuestion asks the oracle for the next question of a running session
func (e *Engine) NextQuestion(ctx context.Context, mode domain.Mode, topic string, history domain.History) (*oracle.Question, error) {
	ctx, span := e.tracer.Start(ctx, "award.next_question")
	defer span.End()

	if history == nil {
		history = domain.History{}
	}
	mode, topic, err := validateSession(mode, topic, history)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	q, err := e.oracle.NextQuestion(ctx, oracle.QuestionRequest{Mode: mode, Topic: topic, History: history})
	if err != nil {
		if !errors.Is(err, domain.ErrOracleFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrOracleFailure, err)
		}
		recordError(span, err)
		return nil, err
	}
	return q, nil
}

// Wait blocks until background activity appends have finished
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// recordActivity appends in the background. Failures are logged and dropped;
// they never affect the award.
func (e *Engine) recordActivity(ctx context.Context, a domain.Activity) {
	if e.activity == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ActivityTimeout)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer cancel()

		if err := e.activity.Append(ctx, a); err != nil {
			e.logger.Warn("activity append failed",
				"user_id", a.UserID,
				"activity_id", a.ID,
				"error", err)
		}
	}()
}

func validateSession(mode domain.Mode, topic string, history domain.History) (domain.Mode, string, error) {
	mode, err := domain.ParseMode(string(mode))
	if err != nil {
		return "", "", err
	}

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", "", domain.Invalid("topic", "required")
	}
	if len(topic) > MaxTopicLength {
		return "", "", domain.Invalid("topic", fmt.Sprintf("longer than %d bytes", MaxTopicLength))
	}

	if err := history.Validate(); err != nil {
		return "", "", err
	}
	return mode, topic, nil
}

// alreadyAwarded reports the stored totals, reloading them when the store
// did not return the record alongside the conflict
func (e *Engine) alreadyAwarded(ctx context.Context, userID string, p *domain.Progress) (*domain.AwardOutcome, error) {
	if p == nil {
		var err error
		if p, err = e.progress.FindByID(ctx, userID); err != nil {
			return nil, persistenceError("reload progress", err)
		}
	}
	return &domain.AwardOutcome{
		TotalXP:        p.XP,
		CurrentStreak:  p.Streak.Count,
		AlreadyAwarded: true,
	}, nil
}

func persistenceError(op string, err error) error {
	if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

func firstItems(items []string) []string {
	if len(items) > domain.MaxFeedbackItems {
		items = items[:domain.MaxFeedbackItems]
	}
	if items == nil {
		return []string{}
	}
	return items
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
