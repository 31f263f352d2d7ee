package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProvider_Generate_JSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Path = %v, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}

		var body openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Model != "llama-3.1-8b-instant" {
			t.Errorf("Model = %q, want llama-3.1-8b-instant", body.Model)
		}
		if body.ResponseFormat == nil || body.ResponseFormat.Type != "json_object" {
			t.Errorf("ResponseFormat = %+v, want json_object", body.ResponseFormat)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("Messages = %+v, want system prompt first", body.Messages)
		}

		w.Write([]byte(`{"model":"llama-3.1-8b-instant","choices":[{"message":{"role":"assistant","content":"{\"overallScore\":70}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":4}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	got, err := p.Generate(context.Background(), &Request{
		Model:    "llama-3.1-8b-instant",
		System:   "You are an examiner.",
		Messages: []Message{{Role: RoleUser, Content: "grade"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != `{"overallScore":70}` {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Model != "llama-3.1-8b-instant" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.Usage.InputTokens != 12 || got.Usage.OutputTokens != 4 {
		t.Errorf("Usage = %+v; want 12/4", got.Usage)
	}
}

func TestOpenAIProvider_Generate_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	_, err := p.Generate(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("Generate() expected error for HTTP 429")
	}
	if !IsRateLimited(err) {
		t.Errorf("IsRateLimited(%v) = false; want true", err)
	}
	if !strings.Contains(err.Error(), "rate limit reached") {
		t.Errorf("error should carry the body, got: %v", err)
	}
}

func TestNewGroqProvider(t *testing.T) {
	p := NewGroqProvider("k", "")
	if p.Name() != "groq" {
		t.Errorf("Name() = %q; want groq", p.Name())
	}
	if p.baseURL != GroqBaseURL {
		t.Errorf("baseURL = %q; want %q", p.baseURL, GroqBaseURL)
	}
	if p.model != GroqDefaultModel {
		t.Errorf("model = %q; want %q", p.model, GroqDefaultModel)
	}
}

func TestClaudeProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Path = %v, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %v, want test-key", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %v, want 2023-06-01", r.Header.Get("anthropic-version"))
		}

		var body claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.HasSuffix(body.System, jsonOnlyInstruction) {
			t.Errorf("System = %q; want JSON instruction appended", body.System)
		}
		if body.MaxTokens != 1024 {
			t.Errorf("MaxTokens = %d; want 1024", body.MaxTokens)
		}

		w.Write([]byte(`{"id":"msg_1","model":"claude-test","content":[{"type":"text","text":"{\"score\":"},{"type":"text","text":"80}"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer server.Close()

	p := NewClaudeProvider(ClaudeConfig{APIKey: "test-key", BaseURL: server.URL})
	got, err := p.Generate(context.Background(), &Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are an examiner."},
			{Role: RoleUser, Content: "grade"},
		},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != `{"score":80}` {
		t.Errorf("Content = %q; want joined text blocks", got.Content)
	}
	if got.FinishReason != "end_turn" {
		t.Errorf("FinishReason = %q", got.FinishReason)
	}
}

func TestClaudeProvider_BuildRequest_SystemExtraction(t *testing.T) {
	p := NewClaudeProvider(ClaudeConfig{})
	got := p.buildRequest(&Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hello"},
		},
	})

	if got.System != "sys" {
		t.Errorf("System = %q; want sys", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("Messages = %+v; want only the user message", got.Messages)
	}
	if got.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Model = %q; want provider default", got.Model)
	}
}

func TestOllamaProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Path = %v, want /api/chat", r.URL.Path)
		}
		var body ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Format != "json" {
			t.Errorf("Format = %q; want json", body.Format)
		}
		if body.Stream {
			t.Error("Stream = true; want false")
		}
		if body.Options == nil || body.Options.NumPredict != 256 {
			t.Errorf("Options = %+v; want num_predict 256", body.Options)
		}

		w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"{}"},"done":true,"eval_count":3,"prompt_eval_count":9}`))
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	got, err := p.Generate(context.Background(), &Request{
		Messages:  []Message{{Role: RoleUser, Content: "hi"}},
		MaxTokens: 256,
		JSONMode:  true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Content != "{}" || got.Usage.InputTokens != 9 || got.Usage.OutputTokens != 3 {
		t.Errorf("Generate() = %+v", got)
	}
}

func TestOllamaProvider_Generate_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	_, err := p.Generate(context.Background(), &Request{})
	if !IsUnavailable(err) {
		t.Errorf("IsUnavailable(%v) = false; want true", err)
	}
}
