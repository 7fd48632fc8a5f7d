package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/config"
	"github.com/sells-group/underwrite-cli/internal/doubleclose"
	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/policy"
	"github.com/sells-group/underwrite-cli/internal/store"
)

func newTestAPI(t *testing.T) (*api, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	eng := engine.New(policy.Defaults(), engine.WithVersion("test"))
	return &api{eng: eng, st: st, posture: "base"}, st
}

func newTestHandler(a *api, sc config.ServerConfig) http.Handler {
	if sc.CORSOrigins == nil {
		sc.CORSOrigins = []string{"*"}
	}
	return newRouter(a, sc)
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Health(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "test", got["engine_version"])
}

type failingStore struct{ store.Store }

func (failingStore) Ping(context.Context) error { return errors.New("database is gone") }

func TestAPI_Health_Degraded(t *testing.T) {
	a, st := newTestAPI(t)
	a.st = failingStore{Store: st}
	h := newTestHandler(a, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestAPI_Analyze(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/v1/analyze", testEnvelope)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res analyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Output)
	assert.InDelta(t, 194000, res.Output.Outputs.Calculations.CapAIV, 0.001)
	assert.Equal(t, "base", res.Output.Meta.Posture)
	assert.Nil(t, res.Saved)
}

func TestAPI_Analyze_DefaultPosture(t *testing.T) {
	a, _ := newTestAPI(t)
	a.posture = "conservative"
	h := newTestHandler(a, config.ServerConfig{})

	env := strings.Replace(testEnvelope, `"posture": "base",`, "", 1)
	rec := doJSON(t, h, http.MethodPost, "/v1/analyze", env)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res analyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "conservative", res.Output.Meta.Posture)
}

func TestAPI_AnalyzeSave_DedupAndRuns(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/v1/analyze?save=true", testEnvelope)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first analyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotNil(t, first.Saved)
	assert.False(t, first.Saved.Deduped)

	rec = doJSON(t, h, http.MethodPost, "/v1/analyze?save=true", testEnvelope)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second analyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.NotNil(t, second.Saved)
	assert.True(t, second.Saved.Deduped)
	assert.Equal(t, first.Saved.Run.ID, second.Saved.Run.ID)

	rec = doJSON(t, h, http.MethodGet, "/v1/runs?org_id=org-1&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs  []model.Run `json:"runs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, first.Saved.Run.ID, list.Runs[0].ID)

	rec = doJSON(t, h, http.MethodGet, "/v1/runs/"+first.Saved.Run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "deal-1", run.DealID)
	assert.Equal(t, first.Output.Meta.InputHash, run.Hashes.Input)

	rec = doJSON(t, h, http.MethodGet, "/v1/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "run not found")

	rec = doJSON(t, h, http.MethodGet, "/v1/runs?org_id=other", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestAPI_NoStore(t *testing.T) {
	a, _ := newTestAPI(t)
	a.st = nil
	h := newTestHandler(a, config.ServerConfig{})

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/v1/analyze?save=true", testEnvelope, http.StatusServiceUnavailable},
		{http.MethodPost, "/v1/analyze", testEnvelope, http.StatusOK},
		{http.MethodGet, "/v1/runs", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/v1/runs/abc", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doJSON(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_BadRequests(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed envelope", http.MethodPost, "/v1/analyze", `{"deal":`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/v1/runs?limit=abc", "", http.StatusBadRequest},
		{"negative offset", http.MethodGet, "/v1/runs?offset=-1", "", http.StatusBadRequest},
		{"bad posture", http.MethodPost, "/v1/policy/resolve", `{"posture":"reckless"}`, http.StatusBadRequest},
		{"bad as_of", http.MethodPost, "/v1/foreclosure/preview?as_of=yesterday", `{}`, http.StatusBadRequest},
		{"oversized body", http.MethodPost, "/v1/analyze", `{"dealId":"` + strings.Repeat("x", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
		{"unknown route", http.MethodGet, "/v1/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_DoubleClose(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/v1/double-close",
		`{"record": {"county": "Orange", "type": "Same-day", "pab": 212000, "pbc": 377000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var calcs doubleclose.Calcs
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calcs))
	assert.InDelta(t, 165000, calcs.GrossSpread, 0.001)
	assert.Equal(t, doubleclose.FeeTargetYes, calcs.FeeTargetCheck)
}

func TestAPI_ForeclosurePreview(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/v1/foreclosure/preview?as_of=2026-10-16",
		`{"foreclosure_status": "sale_scheduled", "auction_date": "2026-10-31", "days_delinquent": "90"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	preview, ok := got["timeline_preview"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 15, preview["days_until_estimated_sale"], 0.001)
	assert.Equal(t, "critical", preview["urgency_level"])
}

func TestAPI_ResolvePolicy(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{})

	rec := doJSON(t, h, http.MethodPost, "/v1/policy/resolve",
		`{"posture": "aggressive", "sandboxConfig": {"assignmentFeeTarget": 9000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Posture      string         `json:"posture"`
		Policy       map[string]any `json:"policy"`
		Underwriting map[string]any `json:"underwriting"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "aggressive", got.Posture)
	assert.InDelta(t, 9000, got.Policy["assignmentFeeTarget"], 0.001)
	assert.Equal(t, "aggressive", got.Underwriting["posture"])
}

func TestAPI_RateLimit(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestAPI_CORSPreflight(t *testing.T) {
	a, _ := newTestAPI(t)
	h := newTestHandler(a, config.ServerConfig{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIntParam(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"25", 25, false},
		{"0", 0, false},
		{"-3", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := intParam(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
