package oracle

import (
	"strings"
	"testing"

	"github.com/weboryskills/practice/internal/domain"
)

func TestPrompter_AssessSystemPrompt(t *testing.T) {
	p := NewPrompter()

	tests := []struct {
		mode domain.Mode
		want string
	}{
		{domain.ModeAptitude, "track the given accuracy"},
		{domain.ModeInterview, "blend accuracy"},
	}
	for _, tt := range tests {
		got := p.AssessSystemPrompt(tt.mode)
		if !strings.Contains(got, tt.want) {
			t.Errorf("AssessSystemPrompt(%s) missing %q", tt.mode, tt.want)
		}
		if !strings.Contains(got, `"overallScore"`) {
			t.Errorf("AssessSystemPrompt(%s) should name the JSON fields", tt.mode)
		}
	}
}

func TestPrompter_BuildAssessPrompt_EmptyHistory(t *testing.T) {
	got := NewPrompter().BuildAssessPrompt(AssessRequest{
		Mode:  domain.ModeInterview,
		Topic: "system design",
	})
	if !strings.Contains(got, "No questions were answered.") {
		t.Errorf("prompt should state the empty session, got:\n%s", got)
	}
	if !strings.Contains(got, "## Topic: system design") {
		t.Errorf("prompt should carry the topic, got:\n%s", got)
	}
}

func TestPrompter_BuildQuestionPrompt(t *testing.T) {
	p := NewPrompter()

	first := p.BuildQuestionPrompt(QuestionRequest{Mode: domain.ModeInterview, Topic: "go"})
	if !strings.Contains(first, "first question") {
		t.Errorf("first prompt = %q", first)
	}

	later := p.BuildQuestionPrompt(QuestionRequest{
		Mode:    domain.ModeAptitude,
		Topic:   "go",
		History: domain.History{{Question: "What is a slice?", UserAnswer: "a view", Score: 9, IsCorrect: true}},
	})
	if !strings.Contains(later, "What is a slice?") {
		t.Errorf("later prompt should list earlier questions, got:\n%s", later)
	}
}
