package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finprompt/refinery/internal/config"
	"github.com/finprompt/refinery/internal/db/sqlite"
	"github.com/finprompt/refinery/internal/packs"
	"github.com/finprompt/refinery/internal/provider"
	"github.com/finprompt/refinery/internal/ratelimit"
	"github.com/finprompt/refinery/internal/runner"
	"github.com/finprompt/refinery/internal/workflow"
)

type stubLLM struct {
	name string
	text string
	err  error
}

func (s *stubLLM) Name() string { return s.name }

func (s *stubLLM) Complete(_ context.Context, _ string, _ provider.Options) (string, error) {
	return s.text, s.err
}

const clarifierJSON = `{
	"questions": [
		{"id": "audience", "label": "Who is the audience?", "type": "multiselect", "options": ["LPs", "Clients"], "required": true},
		{"id": "tone", "label": "What tone?", "type": "dropdown", "options": ["Formal", "Neutral"]},
		{"id": "length", "label": "Target length?", "type": "text"},
		{"id": "facts", "label": "Key facts?", "type": "textarea"},
		{"id": "disclaimer", "label": "Include disclaimer?", "type": "checkbox"}
	]
}`

// testService assembles a Service against a temp database, a scripted
// generation provider, and a scripted fan-out registry.
func testService(t *testing.T, llm provider.Provider, reg provider.Registry, cfg *config.Config) *Service {
	t.Helper()

	if cfg == nil {
		cfg = config.Default()
	}
	store, err := sqlite.NewStore(sqlite.StoreConfig{
		Path: filepath.Join(t.TempDir(), "server_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	catalog := packs.NewCatalog()
	wf := workflow.New(llm, sqlite.NewPromptRecordStore(store), runner.New(reg, 0), catalog, nil)

	return NewService(Options{
		Version:  "test-version",
		Config:   cfg,
		Store:    store,
		Workflow: wf,
		Catalog:  catalog,
		Limiter:  ratelimit.NewMemory(),
		Salt:     "test-salt",
	})
}

func doJSON(t *testing.T, svc *Service, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleHealth(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, nil, nil)

	rec := doJSON(t, svc, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
}

func TestHandleAnalytics(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, nil, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/analytics", map[string]any{
		"sessionId": "sess-1",
		"kind":      "page_view",
		"data":      map[string]any{"path": "/"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	sess, err := svc.sessions.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.IPHash)

	events, err := svc.events.ListBySession(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "page_view", events[0].Kind)
}

func TestHandleAnalyticsSessionFieldsStable(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, nil, nil)

	first := httptest.NewRequest(http.MethodPost, "/api/analytics",
		bytes.NewBufferString(`{"sessionId":"sess-1","kind":"page_view"}`))
	first.Header.Set("User-Agent", "agent-one")
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/api/analytics",
		bytes.NewBufferString(`{"sessionId":"sess-1","kind":"optimize_click"}`))
	second.Header.Set("User-Agent", "agent-two")
	rec = httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, second)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := svc.sessions.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-one", sess.UserAgent.String)

	events, err := svc.events.ListBySession(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestHandleAnalyticsMissingFields(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, nil, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no session", map[string]any{"kind": "page_view"}},
		{"no kind", map[string]any{"sessionId": "sess-1"}},
		{"empty", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, svc, http.MethodPost, "/api/analytics", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "Missing required fields", body["error"])
		})
	}
}

func TestHandleOptimize(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai", text: clarifierJSON}, nil, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/optimize", map[string]any{
		"rawPrompt": "Write an investor update",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	clarifiers, ok := body["clarifiers"].([]any)
	require.True(t, ok)
	assert.Len(t, clarifiers, 5)
}

func TestHandleOptimizeTracksEvent(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai", text: clarifierJSON}, nil, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/optimize", map[string]any{
		"sessionId": "sess-1",
		"rawPrompt": "Write an update",
		"packKey":   "client_email",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	events, err := svc.events.ListBySession(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "optimize_click", events[0].Kind)

	require.True(t, events[0].Data.Valid)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[0].Data.String), &payload))
	assert.Equal(t, "client_email", payload["packKey"])
	assert.Equal(t, float64(len("Write an update")), payload["promptLength"])
}

func TestHandleOptimizeMissingPrompt(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai", text: clarifierJSON}, nil, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/optimize", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleOptimizeModelGarbage(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai", text: "sorry, I cannot help with that"}, nil, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/optimize", map[string]any{
		"rawPrompt": "x",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to generate clarifying questions", body["error"])
}

func TestHandleOptimizeRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.OptimizeMaxRequests = 2
	svc := testService(t, &stubLLM{name: "openai", text: clarifierJSON}, nil, cfg)

	payload := map[string]any{"rawPrompt": "x"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, svc, http.MethodPost, "/api/optimize", payload)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, svc, http.MethodPost, "/api/optimize", payload)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Rate limit exceeded. Please try again later.", body["error"])
}

func TestHandleFinalize(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai", text: "Optimized prompt text."}, nil, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/finalize", map[string]any{
		"sessionId":        "sess-1",
		"rawPrompt":        "write email",
		"packKey":          "client_email",
		"clarifierAnswers": map[string]any{"tone": "Formal"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Optimized prompt text.", body["optimizedPrompt"])
	assert.NotEmpty(t, body["promptRecordId"])
	assert.Greater(t, body["tokenCount"], float64(0))

	stored, err := svc.records.GetByID(context.Background(), body["promptRecordId"].(string))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "write email", stored.RawPrompt)

	events, err := svc.events.ListBySession(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "finalize_click", events[0].Kind)
	require.True(t, events[0].Data.Valid)
	assert.Contains(t, events[0].Data.String, body["promptRecordId"].(string))
}

func TestHandleFinalizeProviderDown(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai", err: assert.AnError}, nil, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/finalize", map[string]any{
		"rawPrompt": "x",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleRun(t *testing.T) {
	reg := provider.Registry{
		"openai":    &stubLLM{name: "openai", text: "openai result"},
		"anthropic": &stubLLM{name: "anthropic", err: assert.AnError},
	}
	svc := testService(t, &stubLLM{name: "openai", text: "optimized"}, reg, nil)

	fin := doJSON(t, svc, http.MethodPost, "/api/finalize", map[string]any{"rawPrompt": "x"})
	require.Equal(t, http.StatusOK, fin.Code)
	recordID := decode(t, fin)["promptRecordId"].(string)

	rec := doJSON(t, svc, http.MethodPost, "/api/run", map[string]any{
		"sessionId":       "sess-run",
		"optimizedPrompt": "optimized",
		"promptRecordId":  recordID,
		"models":          map[string]bool{"openai": true, "anthropic": true},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])

	results := body["results"].(map[string]any)
	assert.Equal(t, "openai result", results["openai"])
	assert.Nil(t, results["anthropic"])

	assert.Contains(t, body["timings"], "openai")
	assert.Contains(t, body["errors"], "anthropic")
	assert.Contains(t, body, "totalTime")

	stored, err := svc.records.GetByID(context.Background(), recordID)
	require.NoError(t, err)
	assert.True(t, stored.RanOpenAI)
	assert.Equal(t, "openai result", stored.ResultOpenAI.String)
	assert.False(t, stored.ResultAnthropic.Valid)

	events, err := svc.events.ListBySession(context.Background(), "sess-run", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run_models", events[0].Kind)
	require.True(t, events[0].Data.Valid)
	assert.Contains(t, events[0].Data.String, `"hasErrors":true`)
	assert.Contains(t, events[0].Data.String, `"openai":true`)
}

func TestHandleRunSuccessOmitsErrors(t *testing.T) {
	reg := provider.Registry{"openai": &stubLLM{name: "openai", text: "fine"}}
	svc := testService(t, &stubLLM{name: "openai", text: "optimized"}, reg, nil)

	fin := doJSON(t, svc, http.MethodPost, "/api/finalize", map[string]any{"rawPrompt": "x"})
	require.Equal(t, http.StatusOK, fin.Code)
	recordID := decode(t, fin)["promptRecordId"].(string)

	rec := doJSON(t, svc, http.MethodPost, "/api/run", map[string]any{
		"optimizedPrompt": "optimized",
		"promptRecordId":  recordID,
		"models":          map[string]bool{"openai": true},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "errors")
}

func TestHandleRunUnknownRecord(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, provider.Registry{}, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/run", map[string]any{
		"optimizedPrompt": "x",
		"promptRecordId":  "no-such-record",
		"models":          map[string]bool{"openai": true},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Prompt record not found", decode(t, rec)["error"])
}

func TestHandleRunUnknownProvider(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, provider.Registry{}, nil)

	rec := doJSON(t, svc, http.MethodPost, "/api/run", map[string]any{
		"optimizedPrompt": "x",
		"promptRecordId":  "rec-1",
		"models":          map[string]bool{"mistral": true},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown provider", decode(t, rec)["error"])
}

func TestHandleRunMissingFields(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, provider.Registry{}, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no prompt", map[string]any{"promptRecordId": "rec-1", "models": map[string]bool{}}},
		{"no record id", map[string]any{"optimizedPrompt": "x", "models": map[string]bool{}}},
		{"no models", map[string]any{"optimizedPrompt": "x", "promptRecordId": "rec-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, svc, http.MethodPost, "/api/run", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// Limiter windows are keyed by hashed identity only, so one caller's
// optimize spend counts against their run window too. Distinct callers
// keep distinct windows.
func TestRateLimitWindowSharedAcrossRoutes(t *testing.T) {
	cfg := config.Default()
	cfg.OptimizeMaxRequests = 1
	cfg.RunMaxRequests = 1
	svc := testService(t, &stubLLM{name: "openai", text: clarifierJSON}, provider.Registry{}, cfg)

	rec := doJSON(t, svc, http.MethodPost, "/api/optimize", map[string]any{"rawPrompt": "x"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The optimize check opened this identity's window with count 1, which
	// already exhausts the run quota of 1.
	runBody := map[string]any{
		"optimizedPrompt": "x", "promptRecordId": "missing", "models": map[string]bool{},
	}
	rec = doJSON(t, svc, http.MethodPost, "/api/run", runBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different caller identity has its own untouched window and gets
	// past the limiter to the record lookup.
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(runBody))
	req := httptest.NewRequest(http.MethodPost, "/api/run", &buf)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	other := httptest.NewRecorder()
	svc.Router().ServeHTTP(other, req)
	assert.Equal(t, http.StatusNotFound, other.Code)
}

func TestHandlePacks(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, nil, nil)

	rec := doJSON(t, svc, http.MethodGet, "/api/packs", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	packList := body["packs"].([]any)
	require.Len(t, packList, 6)
	first := packList[0].(map[string]any)
	assert.Equal(t, "linkedin_post", first["key"])
}

func TestHandleInvalidJSONBody(t *testing.T) {
	svc := testService(t, &stubLLM{name: "openai"}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analytics", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["error"])
}
