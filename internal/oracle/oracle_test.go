package oracle

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/llm"
)

// fakeCompleter returns a canned response and records the request
type fakeCompleter struct {
	content string
	model   string
	err     error

	gotReq    *llm.Request
	gotModels []string
}

func (f *fakeCompleter) Complete(ctx context.Context, req *llm.Request, models []string) (*llm.Response, string, error) {
	f.gotReq = req
	f.gotModels = models
	if f.err != nil {
		return nil, "", f.err
	}
	return &llm.Response{Content: f.content, Model: f.model}, f.model, nil
}

func sampleHistory() domain.History {
	return domain.History{
		{Question: "2+2?", UserAnswer: "4", Score: 8, IsCorrect: true},
		{Question: "3*3?", UserAnswer: "6", Score: 3, IsCorrect: false},
	}
}

func TestLLMOracle_Assess(t *testing.T) {
	fc := &fakeCompleter{
		model:   "llama-3.3-70b-versatile",
		content: "```json\n{\"overallScore\": 148, \"strengths\": [\"fast\", \"calm\", \"extra\"], \"weaknesses\": [\"multiplication\"], \"improvementTips\": [\"drill tables\"], \"summary\": \" Half right. \"}\n```",
	}
	o := New(fc, DefaultConfig(), nil)

	got, err := o.Assess(context.Background(), AssessRequest{
		Mode:    domain.ModeAptitude,
		Topic:   "arithmetic",
		History: sampleHistory(),
		Metrics: domain.ComputeMetrics(sampleHistory()),
	})
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}

	if got.OverallScore != 100 {
		t.Errorf("OverallScore = %d; want 100 (clamped)", got.OverallScore)
	}
	if !slices.Equal(got.Strengths, []string{"fast", "calm"}) {
		t.Errorf("Strengths = %v; want truncated to 2", got.Strengths)
	}
	if !slices.Equal(got.Tips, []string{"drill tables"}) {
		t.Errorf("Tips = %v; want improvementTips alias", got.Tips)
	}
	if got.Summary != "Half right." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if got.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Model = %q", got.Model)
	}

	if !fc.gotReq.JSONMode {
		t.Error("oracle requests must use JSON mode")
	}
	if !slices.Equal(fc.gotModels, llm.DefaultModels) {
		t.Errorf("models = %v; want %v", fc.gotModels, llm.DefaultModels)
	}
	prompt := fc.gotReq.Messages[0].Content
	if !strings.Contains(prompt, "Accuracy: 50%") || !strings.Contains(prompt, "Average rating: 5.50") {
		t.Errorf("prompt should anchor hard metrics, got:\n%s", prompt)
	}
}

func TestLLMOracle_Assess_Failures(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"provider error", &fakeCompleter{err: &llm.StatusError{Code: http.StatusBadRequest}}},
		{"exhausted", &fakeCompleter{err: llm.ErrModelsExhausted}},
		{"not json", &fakeCompleter{content: "I think you did great!"}},
		{"missing score", &fakeCompleter{content: `{"summary":"ok"}`}},
		{"empty", &fakeCompleter{content: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(tt.fc, DefaultConfig(), nil)
			_, err := o.Assess(context.Background(), AssessRequest{Mode: domain.ModeInterview, History: domain.History{}})
			if !errors.Is(err, domain.ErrOracleFailure) {
				t.Errorf("Assess() error = %v; want ErrOracleFailure", err)
			}
		})
	}
}

func TestLLMOracle_NextQuestion(t *testing.T) {
	tests := []struct {
		name        string
		mode        domain.Mode
		content     string
		wantText    string
		wantOptions int
	}{
		{"interview nextQuestion", domain.ModeInterview, `{"nextQuestion":"Explain goroutines."}`, "Explain goroutines.", 0},
		{"interview alias", domain.ModeInterview, `{"question":"What is a channel?","options":["x"]}`, "What is a channel?", 0},
		{"aptitude options", domain.ModeAptitude, `{"question":"5+5?","options":["9","10"," ","11"]}`, "5+5?", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&fakeCompleter{content: tt.content, model: "m"}, DefaultConfig(), nil)
			got, err := o.NextQuestion(context.Background(), QuestionRequest{Mode: tt.mode, Topic: "go"})
			if err != nil {
				t.Fatalf("NextQuestion() error = %v", err)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q; want %q", got.Text, tt.wantText)
			}
			if len(got.Options) != tt.wantOptions {
				t.Errorf("Options = %v; want %d", got.Options, tt.wantOptions)
			}
		})
	}
}

func TestLLMOracle_NextQuestion_MissingField(t *testing.T) {
	o := New(&fakeCompleter{content: `{"options":["a"]}`}, DefaultConfig(), nil)
	_, err := o.NextQuestion(context.Background(), QuestionRequest{Mode: domain.ModeAptitude})
	if !errors.Is(err, domain.ErrOracleFailure) || !errors.Is(err, ErrMissingField) {
		t.Errorf("NextQuestion() error = %v; want ErrOracleFailure wrapping ErrMissingField", err)
	}
}
