package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is the kind of practice session
type Mode string

const (
	ModeInterview Mode = "interview"
	ModeAptitude  Mode = "aptitude"
)

// ParseMode validates a raw mode string
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeInterview, ModeAptitude:
		return m, nil
	case "":
		return "", Invalid("mode", "required")
	default:
		return "", Invalid("mode", fmt.Sprintf("unknown mode %q", s))
	}
}

// Score bounds for a single answered question
const (
	MinAnswerScore = 0
	MaxAnswerScore = 10
)

// Answer is one answered question of a session.
// Field order is part of the fingerprint and must not change.
type Answer struct {
	Question   string `json:"question"`
	UserAnswer string `json:"userAnswer"`
	Score      int    `json:"score"`
	IsCorrect  bool   `json:"isCorrect"`
}

// History is the ordered list of answers of a finished session
type History []Answer

// Validate checks the history shape. A nil history is rejected, an empty one
// is a valid zero-question session.
func (h History) Validate() error {
	if h == nil {
		return Invalid("history", "required")
	}
	for i, a := range h {
		if a.Score < MinAnswerScore || a.Score > MaxAnswerScore {
			return Invalid("history", fmt.Sprintf("answer %d: score %d out of range [%d,%d]",
				i, a.Score, MinAnswerScore, MaxAnswerScore))
		}
	}
	return nil
}

// Fingerprint hashes the canonical serialization of the history.
//
// The serialization is produced here, not by callers: compact JSON with the
// fixed Answer field order. Byte-identical histories share a fingerprint,
// any edit or reordering produces a new one.
func (h History) Fingerprint() (string, error) {
	canonical := h
	if canonical == nil {
		canonical = History{}
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("serialize history: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
