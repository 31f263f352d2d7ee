// Package mcp exposes practice progress and session scoring as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/oracle"
)

// Engine is the part of award.Engine the tools call
type Engine interface {
	Analyze(ctx context.Context, userID string, mode domain.Mode, topic string, history domain.History) (*domain.Analysis, error)
	NextQuestion(ctx context.Context, mode domain.Mode, topic string, history domain.History) (*oracle.Question, error)
}

// ProgressReader looks up progress records
type ProgressReader interface {
	FindByID(ctx context.Context, userID string) (*domain.Progress, error)
}

// Server wraps the MCP server with practice tools
type Server struct {
	mcpServer *server.Server
	engine    Engine
	progress  ProgressReader
}

// Config contains configuration for the MCP server
type Config struct {
	Engine   Engine
	Progress ProgressReader
	Version  string
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	s := &Server{
		engine:   cfg.Engine,
		progress: cfg.Progress,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "practice",
		Version: version,
	}, server.WithInstructions(`
Practice scores interview and aptitude sessions and tracks XP and daily streaks.

Available tools:
- practice_progress: XP and current streak for a user
- practice_analyze: score a finished session and award it once
- practice_next_question: generate the next question for a running session

Resubmitting the same session history never awards XP twice.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("practice_progress").
		Description("Get a user's XP, current streak and last active time.").
		Handler(s.handleProgress)

	s.mcpServer.Tool("practice_analyze").
		Description("Score a finished practice session and award XP and streak once per distinct session.").
		Handler(s.handleAnalyze)

	s.mcpServer.Tool("practice_next_question").
		Description("Generate the next question for a practice session.").
		Handler(s.handleNextQuestion)
}

// Input/Output types for tools

type ProgressInput struct {
	UserID string `json:"user_id" jsonschema:"description=User identifier"`
}

type ProgressOutput struct {
	UserID         string `json:"user_id"`
	XP             int    `json:"xp"`
	CurrentStreak  int    `json:"current_streak"`
	LastActiveDate string `json:"last_active_date,omitempty"`
}

type AnswerInput struct {
	Question   string `json:"question"`
	UserAnswer string `json:"user_answer"`
	Score      int    `json:"score" jsonschema:"description=Per-answer score 0-10"`
	IsCorrect  bool   `json:"is_correct"`
}

type SessionInput struct {
	UserID  string        `json:"user_id,omitempty" jsonschema:"description=User identifier (required for practice_analyze)"`
	Mode    string        `json:"mode" jsonschema:"description=Session mode,enum=interview,enum=aptitude"`
	Topic   string        `json:"topic" jsonschema:"description=Session topic"`
	History []AnswerInput `json:"history,omitempty" jsonschema:"description=Answered questions in order"`
}

type AnalyzeOutput struct {
	OverallScore   int      `json:"overall_score"`
	Accuracy       int      `json:"accuracy"`
	AvgRawScore    float64  `json:"avg_raw_score"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Tips           []string `json:"tips"`
	Summary        string   `json:"summary"`
	XPEarned       int      `json:"xp_earned"`
	StreakBonus    int      `json:"streak_bonus"`
	TotalXP        int      `json:"total_xp"`
	CurrentStreak  int      `json:"current_streak"`
	AlreadyAwarded bool     `json:"already_awarded"`
}

type NextQuestionOutput struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// Tool handlers

func (s *Server) handleProgress(ctx context.Context, input ProgressInput) (ProgressOutput, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return ProgressOutput{}, domain.Invalid("user_id", "required")
	}

	p, err := s.progress.FindByID(ctx, userID)
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("load progress: %w", err)
	}

	out := ProgressOutput{
		UserID:        p.UserID,
		XP:            p.XP,
		CurrentStreak: p.Streak.Count,
	}
	if p.Streak.LastActiveDate != nil {
		out.LastActiveDate = p.Streak.LastActiveDate.Format(time.RFC3339)
	}
	return out, nil
}

func (s *Server) handleAnalyze(ctx context.Context, input SessionInput) (AnalyzeOutput, error) {
	analysis, err := s.engine.Analyze(ctx, input.UserID, domain.Mode(input.Mode), input.Topic, toHistory(input.History))
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("analyze session: %w", err)
	}

	return AnalyzeOutput{
		OverallScore:   analysis.OverallScore,
		Accuracy:       analysis.Metrics.Accuracy,
		AvgRawScore:    analysis.Metrics.AvgRawScore,
		Strengths:      analysis.Strengths,
		Weaknesses:     analysis.Weaknesses,
		Tips:           analysis.Tips,
		Summary:        analysis.Summary,
		XPEarned:       analysis.XPEarned,
		StreakBonus:    analysis.StreakBonus,
		TotalXP:        analysis.TotalXP,
		CurrentStreak:  analysis.CurrentStreak,
		AlreadyAwarded: analysis.AlreadyAwarded,
	}, nil
}

func (s *Server) handleNextQuestion(ctx context.Context, input SessionInput) (NextQuestionOutput, error) {
	q, err := s.engine.NextQuestion(ctx, domain.Mode(input.Mode), input.Topic, toHistory(input.History))
	if err != nil {
		return NextQuestionOutput{}, fmt.Errorf("next question: %w", err)
	}
	return NextQuestionOutput{Question: q.Text, Options: q.Options}, nil
}

// toHistory keeps an empty list distinct from a missing one
func toHistory(in []AnswerInput) domain.History {
	if in == nil {
		return nil
	}
	h := make(domain.History, len(in))
	for i, a := range in {
		h[i] = domain.Answer{
			Question:   a.Question,
			UserAnswer: a.UserAnswer,
			Score:      a.Score,
			IsCorrect:  a.IsCorrect,
		}
	}
	return h
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
