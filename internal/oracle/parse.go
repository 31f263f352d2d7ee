package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/weboryskills/practice/internal/domain"
)

var (
	ErrEmptyOutput   = errors.New("empty model output")
	ErrMissingField  = errors.New("missing required field")
	ErrMalformedJSON = errors.New("malformed JSON")
)

// rawAssessment accepts the field spellings models actually produce
type rawAssessment struct {
	OverallScore    *float64 `json:"overallScore"`
	OverallScoreAlt *float64 `json:"overall_score"`
	Score           *float64 `json:"score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Tips            []string `json:"tips"`
	ImprovementTips []string `json:"improvementTips"`
	Summary         string   `json:"summary"`
}

type rawQuestion struct {
	NextQuestion string   `json:"nextQuestion"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
}

func parseAssessment(content string) (*Assessment, error) {
	var raw rawAssessment
	if err := decodeObject(content, &raw); err != nil {
		return nil, err
	}

	score := firstNonNil(raw.OverallScore, raw.OverallScoreAlt, raw.Score)
	if score == nil {
		return nil, fmt.Errorf("%w: overallScore", ErrMissingField)
	}

	tips := raw.Tips
	if len(tips) == 0 {
		tips = raw.ImprovementTips
	}

	return &Assessment{
		OverallScore: roundScore(*score),
		Strengths:    trimList(raw.Strengths),
		Weaknesses:   trimList(raw.Weaknesses),
		Tips:         trimList(tips),
		Summary:      strings.TrimSpace(raw.Summary),
	}, nil
}

func parseQuestion(content string, mode domain.Mode) (*Question, error) {
	var raw rawQuestion
	if err := decodeObject(content, &raw); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(raw.NextQuestion)
	if text == "" {
		text = strings.TrimSpace(raw.Question)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: nextQuestion", ErrMissingField)
	}

	q := &Question{Text: text}
	if mode == domain.ModeAptitude {
		for _, o := range raw.Options {
			if o = strings.TrimSpace(o); o != "" {
				q.Options = append(q.Options, o)
			}
		}
	}
	return q, nil
}

// decodeObject strips markdown fences and surrounding prose, then decodes
// the outermost JSON object
func decodeObject(content string, v any) error {
	s := strings.TrimSpace(content)
	if s == "" {
		return ErrEmptyOutput
	}

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag line
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return fmt.Errorf("%w: no object found", ErrMalformedJSON)
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

func trimList(items []string) []string {
	out := make([]string, 0, domain.MaxFeedbackItems)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == domain.MaxFeedbackItems {
			break
		}
	}
	return out
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// roundScore maps any model number onto [0,100]
func roundScore(f float64) int {
	if math.IsNaN(f) {
		return domain.MinOverallScore
	}
	f = max(float64(domain.MinOverallScore), min(float64(domain.MaxOverallScore), f))
	return domain.ClampScore(int(math.Round(f)))
}
