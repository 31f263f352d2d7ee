package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/weboryskills/practice/internal/domain"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// maxActivityLimit caps ?limit= on the activity listing
const maxActivityLimit = 100

// sessionRequest is the body of the practice routes
type sessionRequest struct {
	Mode    domain.Mode    `json:"mode"`
	Topic   string         `json:"topic"`
	History domain.History `json:"history"`
}

// progressResponse hides the awarded fingerprints
type progressResponse struct {
	UserID         string     `json:"userId"`
	XP             int        `json:"xp"`
	CurrentStreak  int        `json:"currentStreak"`
	LastActiveDate *time.Time `json:"lastActiveDate,omitempty"`
	SessionsCount  int        `json:"sessionsCount"`
}

func newProgressResponse(p *domain.Progress) progressResponse {
	return progressResponse{
		UserID:         p.UserID,
		XP:             p.XP,
		CurrentStreak:  p.Streak.Count,
		LastActiveDate: p.Streak.LastActiveDate,
		SessionsCount:  len(p.CompletedSessions),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSession(w, r)
	if !ok {
		return
	}

	report, err := s.deps.Engine.ComputeReport(r.Context(), req.Mode, req.Topic, req.History)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSession(w, r)
	if !ok {
		return
	}

	analysis, err := s.deps.Engine.Analyze(r.Context(), UserIDFromContext(r.Context()), req.Mode, req.Topic, req.History)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, analysis)
}

func (s *Server) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSession(w, r)
	if !ok {
		return
	}

	q, err := s.deps.Engine.NextQuestion(r.Context(), req.Mode, req.Topic, req.History)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, q)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Progress.FindByID(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, newProgressResponse(p))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Progress.Register(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, newProgressResponse(p))
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if s.deps.Activities == nil {
		jsonError(w, http.StatusNotImplemented, "activity log not available", nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxActivityLimit {
			jsonError(w, http.StatusBadRequest, "invalid request",
				fmt.Errorf("limit must be between 1 and %d", maxActivityLimit))
			return
		}
		limit = n
	}

	activities, err := s.deps.Activities.ListActivities(r.Context(), UserIDFromContext(r.Context()), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"activities": activities})
}

// decodeSession reads a session body, answering 400 itself on failure
func decodeSession(w http.ResponseWriter, r *http.Request) (*sessionRequest, bool) {
	var req sessionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return nil, false
	}
	return &req, true
}
