package oracle

import (
	"fmt"
	"strings"

	"github.com/weboryskills/practice/internal/domain"
)

// Prompter builds prompts for the LLM
type Prompter struct{}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{}
}

// AssessSystemPrompt returns the examiner persona for a mode
func (p *Prompter) AssessSystemPrompt(mode domain.Mode) string {
	base := `You are a strict but fair examiner reviewing a finished practice session.
You reply with a single JSON object and nothing else.

The JSON object has these fields:
- "overallScore": integer from 0 to 100
- "strengths": at most 2 short strings
- "weaknesses": at most 2 short strings
- "tips": at most 2 short, actionable strings
- "summary": one or two sentences

SCORING RULES:`

	switch mode {
	case domain.ModeAptitude:
		return base + `
- The session is objective. overallScore MUST track the given accuracy closely.
- Do not reward effort on wrong answers.`

	case domain.ModeInterview:
		return base + `
- The session is a mock interview. overallScore may blend accuracy with the
  average per-question rating (scaled to 100).
- Judge clarity, depth and correctness of the answers.`

	default:
		return base + `
- Stay consistent with the hard metrics you are given.`
	}
}

// QuestionSystemPrompt returns the question-writer persona for a mode
func (p *Prompter) QuestionSystemPrompt(mode domain.Mode) string {
	if mode == domain.ModeAptitude {
		return `You write aptitude test questions.
You reply with a single JSON object: {"question": string, "options": [4 strings]}.
Exactly one option is correct. Do not reveal the answer.`
	}
	return `You are an interviewer running a mock technical interview.
You reply with a single JSON object: {"question": string}.
Ask one question at a time and do not repeat earlier questions.`
}

// BuildAssessPrompt renders the session with its hard metrics as anchors
func (p *Prompter) BuildAssessPrompt(req AssessRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Mode: %s\n", req.Mode))
	sb.WriteString(fmt.Sprintf("## Topic: %s\n\n", req.Topic))

	sb.WriteString("## Hard Metrics\n\n")
	sb.WriteString(fmt.Sprintf("- Questions: %d\n", req.Metrics.TotalQuestions))
	sb.WriteString(fmt.Sprintf("- Correct: %d\n", req.Metrics.Correct))
	sb.WriteString(fmt.Sprintf("- Accuracy: %d%%\n", req.Metrics.Accuracy))
	sb.WriteString(fmt.Sprintf("- Average rating: %.2f / %d\n\n", req.Metrics.AvgRawScore, domain.MaxAnswerScore))

	writeHistory(&sb, req.History)

	sb.WriteString("Return the JSON object now.")
	return sb.String()
}

// BuildQuestionPrompt renders the topic and what was already asked
func (p *Prompter) BuildQuestionPrompt(req QuestionRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Topic: %s\n\n", req.Topic))
	if len(req.History) == 0 {
		sb.WriteString("This is the first question of the session.\n\n")
	} else {
		writeHistory(&sb, req.History)
		sb.WriteString("Adapt the difficulty to how the learner is doing.\n\n")
	}

	sb.WriteString("Return the JSON object now.")
	return sb.String()
}

func writeHistory(sb *strings.Builder, history domain.History) {
	if len(history) == 0 {
		sb.WriteString("## Answers\n\nNo questions were answered.\n\n")
		return
	}

	sb.WriteString("## Answers\n\n")
	for i, a := range history {
		mark := "✗"
		if a.IsCorrect {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("%d. Q: %s\n   A: %s\n   Rating: %d/%d %s\n",
			i+1, a.Question, a.UserAnswer, a.Score, domain.MaxAnswerScore, mark))
	}
	sb.WriteString("\n")
}
