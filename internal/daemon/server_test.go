package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/oracle"
)

type testServer struct {
	*Server
	engine     *fakeEngine
	progress   *fakeProgress
	activities *fakeActivities
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	ts := &testServer{
		engine:     &fakeEngine{},
		progress:   newFakeProgress(),
		activities: &fakeActivities{},
	}
	ts.Server = NewServer(Deps{
		Engine:     ts.engine,
		Progress:   ts.progress,
		Activities: ts.activities,
	}, ServerConfig{Addr: "127.0.0.1:0", RateLimit: rateLimit})
	t.Cleanup(func() {
		if ts.limiter != nil {
			ts.limiter.Close()
		}
	})
	return ts
}

func (ts *testServer) do(method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

const sessionBody = `{"mode":"aptitude","topic":"ratios","history":[{"question":"q1","userAnswer":"a","score":8,"isCorrect":true}]}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 0)
	rec := ts.do(http.MethodGet, "/v1/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s; want status ok", rec.Body.String())
	}
	if rec.Header().Get(CorrelationIDHeader) == "" {
		t.Error("missing correlation ID header")
	}
}

func TestUserRoutesRequireIdentity(t *testing.T) {
	ts := newTestServer(t, 0)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/v1/practice/report"},
		{http.MethodPost, "/v1/practice/analyze"},
		{http.MethodPost, "/v1/practice/next"},
		{http.MethodGet, "/v1/progress"},
		{http.MethodPost, "/v1/progress"},
		{http.MethodGet, "/v1/activity"},
	}
	for _, rt := range routes {
		rec := ts.do(rt.method, rt.path, "", sessionBody)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d; want %d", rt.method, rt.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestAnalyze_PassesSessionAndUser(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.engine.analysis = &domain.Analysis{
		Report:       domain.Report{Mode: domain.ModeAptitude, Topic: "ratios", OverallScore: 80, Strengths: []string{}, Weaknesses: []string{}, Tips: []string{}},
		AwardOutcome: domain.AwardOutcome{XPEarned: 1, TotalXP: 1, CurrentStreak: 1},
	}

	rec := ts.do(http.MethodPost, "/v1/practice/analyze", "u1", sessionBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	if ts.engine.lastUser != "u1" {
		t.Errorf("userID = %q; want u1", ts.engine.lastUser)
	}
	if ts.engine.lastMode != domain.ModeAptitude || ts.engine.lastTopic != "ratios" || len(ts.engine.lastHistory) != 1 {
		t.Errorf("engine got mode=%q topic=%q history=%d", ts.engine.lastMode, ts.engine.lastTopic, len(ts.engine.lastHistory))
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"overallScore", "xpEarned", "totalXp", "currentStreak", "alreadyAwarded", "metrics"} {
		if _, ok := got[key]; !ok {
			t.Errorf("response missing %q: %s", key, rec.Body.String())
		}
	}
}

func TestReportAndNext(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.engine.report = &domain.Report{OverallScore: 55}
	ts.engine.question = &oracle.Question{Text: "What is 10% of 50?"}

	rec := ts.do(http.MethodPost, "/v1/practice/report", "u1", sessionBody)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"overallScore":55`) {
		t.Errorf("report: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodPost, "/v1/practice/next", "u1", `{"mode":"aptitude","topic":"ratios"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "10% of 50") {
		t.Errorf("next: status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.Invalid("mode", "unknown"), http.StatusBadRequest},
		{"user not found", fmt.Errorf("load progress: %w", domain.ErrUserNotFound), http.StatusNotFound},
		{"oracle", fmt.Errorf("%w: timeout", domain.ErrOracleFailure), http.StatusServiceUnavailable},
		{"persistence", fmt.Errorf("%w: disk full", domain.ErrPersistence), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, 0)
			ts.engine.err = tt.err

			rec := ts.do(http.MethodPost, "/v1/practice/analyze", "u1", sessionBody)
			if rec.Code != tt.status {
				t.Fatalf("status = %d; want %d", rec.Code, tt.status)
			}
			body := decodeError(t, rec)
			if body.Status != tt.status || body.Error == "" {
				t.Errorf("body = %+v; want status %d and a message", body, tt.status)
			}
		})
	}
}

func TestErrorMapping_ValidationDetails(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.engine.err = domain.Invalid("topic", "required")

	body := decodeError(t, ts.do(http.MethodPost, "/v1/practice/report", "u1", sessionBody))
	if body.Details != "invalid topic: required" {
		t.Errorf("details = %q; want %q", body.Details, "invalid topic: required")
	}
}

func TestErrorMapping_InternalHidesDetails(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.engine.err = fmt.Errorf("%w: password=hunter2", domain.ErrPersistence)

	body := decodeError(t, ts.do(http.MethodPost, "/v1/practice/analyze", "u1", sessionBody))
	if body.Details != "" {
		t.Errorf("details = %q; want none for internal errors", body.Details)
	}
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, body := range []string{"", "{", `{"mode":5}`} {
		rec := ts.do(http.MethodPost, "/v1/practice/analyze", "u1", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d; want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestProgress_RegisterThenGet(t *testing.T) {
	ts := newTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/v1/progress", "u1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("before register status = %d; want %d", rec.Code, http.StatusNotFound)
	}

	rec = ts.do(http.MethodPost, "/v1/progress", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d; want %d", rec.Code, http.StatusOK)
	}

	ts.progress.records["u1"].XP = 120
	ts.progress.records["u1"].Streak.Count = 3
	ts.progress.records["u1"].CompletedSessions = []string{"fp1", "fp2"}

	rec = ts.do(http.MethodGet, "/v1/progress", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d; want %d", rec.Code, http.StatusOK)
	}

	var got progressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := progressResponse{UserID: "u1", XP: 120, CurrentStreak: 3, SessionsCount: 2}
	if got != want {
		t.Errorf("progress = %+v; want %+v", got, want)
	}
	if strings.Contains(rec.Body.String(), "fp1") {
		t.Error("response leaks session fingerprints")
	}
}

func TestActivity_Limit(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.activities.items = []domain.Activity{
		{UserID: "u1", Kind: domain.ActivityKindPractice},
		{UserID: "u2", Kind: domain.ActivityKindPractice},
	}

	rec := ts.do(http.MethodGet, "/v1/activity?limit=5", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if ts.activities.lastLimit != 5 {
		t.Errorf("limit = %d; want 5", ts.activities.lastLimit)
	}

	var got struct {
		Activities []domain.Activity `json:"activities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Activities) != 1 {
		t.Errorf("activities = %d; want 1", len(got.Activities))
	}

	for _, bad := range []string{"0", "-1", "abc", "101"} {
		rec := ts.do(http.MethodGet, "/v1/activity?limit="+bad, "u1", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d; want %d", bad, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestRateLimit_PerUser(t *testing.T) {
	ts := newTestServer(t, 2)
	ts.engine.report = &domain.Report{}

	for i := 0; i < 2; i++ {
		if rec := ts.do(http.MethodPost, "/v1/practice/report", "u1", sessionBody); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d; want %d", i, rec.Code, http.StatusOK)
		}
	}

	rec := ts.do(http.MethodPost, "/v1/practice/report", "u1", sessionBody)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d; want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	if rec := ts.do(http.MethodPost, "/v1/practice/report", "u2", sessionBody); rec.Code != http.StatusOK {
		t.Errorf("other user status = %d; want %d", rec.Code, http.StatusOK)
	}

	if rec := ts.do(http.MethodGet, "/v1/progress", "u1", ""); rec.Code == http.StatusTooManyRequests {
		t.Error("progress route should not be rate limited")
	}
}
