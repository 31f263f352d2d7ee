// Package oracle turns a finished practice session into a qualitative
// assessment, and proposes the next question, by asking an LLM for strict JSON.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/llm"
)

// Oracle scores sessions and generates practice questions
type Oracle interface {
	Assess(ctx context.Context, req AssessRequest) (*Assessment, error)
	NextQuestion(ctx context.Context, req QuestionRequest) (*Question, error)
}

// AssessRequest carries a finished session and its hard metrics
type AssessRequest struct {
	Mode    domain.Mode
	Topic   string
	History domain.History
	Metrics domain.Metrics
}

// Assessment is the oracle's verdict, already clamped and truncated
type Assessment struct {
	OverallScore int
	Strengths    []string
	Weaknesses   []string
	Tips         []string
	Summary      string
	Model        string
}

// QuestionRequest asks for the next question of a running session
type QuestionRequest struct {
	Mode    domain.Mode
	Topic   string
	History domain.History
}

// Question is a generated practice question
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options,omitempty"`
	Model   string   `json:"model"`
}

// Config tunes the LLM calls
type Config struct {
	Models      []string
	MaxTokens   int
	Temperature float64

	// Timeout bounds one oracle call across all fallback models; zero
	// leaves it to the caller's context
	Timeout time.Duration
}

// DefaultConfig returns the model preference list and sampling defaults
func DefaultConfig() Config {
	return Config{
		Models:      llm.DefaultModels,
		MaxTokens:   1024,
		Temperature: 0.3,
	}
}

// LLMOracle implements Oracle on top of a model fallback chain
type LLMOracle struct {
	completer llm.Completer
	prompter  *Prompter
	cfg       Config
	logger    *slog.Logger
}

// New creates an LLM-backed oracle
func New(completer llm.Completer, cfg Config, logger *slog.Logger) *LLMOracle {
	if len(cfg.Models) == 0 {
		cfg.Models = llm.DefaultModels
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMOracle{
		completer: completer,
		prompter:  NewPrompter(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Assess asks the model for a bounded overall score and feedback
func (o *LLMOracle) Assess(ctx context.Context, req AssessRequest) (*Assessment, error) {
	resp, model, err := o.complete(ctx, o.prompter.AssessSystemPrompt(req.Mode), o.prompter.BuildAssessPrompt(req))
	if err != nil {
		return nil, err
	}

	a, err := parseAssessment(resp.Content)
	if err != nil {
		o.logger.Warn("unparseable assessment", "model", model, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrOracleFailure, err)
	}
	a.Model = model
	return a, nil
}

// NextQuestion asks the model for one new question on the topic
func (o *LLMOracle) NextQuestion(ctx context.Context, req QuestionRequest) (*Question, error) {
	resp, model, err := o.complete(ctx, o.prompter.QuestionSystemPrompt(req.Mode), o.prompter.BuildQuestionPrompt(req))
	if err != nil {
		return nil, err
	}

	q, err := parseQuestion(resp.Content, req.Mode)
	if err != nil {
		o.logger.Warn("unparseable question", "model", model, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrOracleFailure, err)
	}
	q.Model = model
	return q, nil
}

func (o *LLMOracle) complete(ctx context.Context, system, prompt string) (*llm.Response, string, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	resp, model, err := o.completer.Complete(ctx, &llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
		JSONMode:    true,
	}, o.cfg.Models)
	if err != nil {
		return nil, model, fmt.Errorf("%w: %w", domain.ErrOracleFailure, err)
	}
	return resp, model, nil
}
