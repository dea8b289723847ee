package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/model-eval/internal/eval"
	"github.com/sells-group/model-eval/internal/report"
)

func newServeStore(t *testing.T) *report.Store {
	t.Helper()
	st, err := report.NewStore(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newServeStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeListRuns(t *testing.T) {
	st := newServeStore(t)
	ctx := context.Background()
	require.NoError(t, st.RecordVerdict(ctx, &eval.Verdict{
		ScenarioID: "kubernetes_costs", Model: "gemma3:4b", Accepted: true,
		Trace: []eval.AttemptRecord{{Index: 0, Seed: 1}},
	}))
	require.NoError(t, st.RecordVerdict(ctx, &eval.Verdict{
		ScenarioID: "kubernetes_costs", Model: "deepseek-r1:8b", Accepted: false,
		Trace: []eval.AttemptRecord{{Index: 0, Seed: 2}},
	}))

	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []report.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?accepted=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "gemma3:4b", runs[0].Verdict.Model)
}

func TestServeGetRunNotFound(t *testing.T) {
	router := newRouter(newServeStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeInvalidQuery(t *testing.T) {
	router := newRouter(newServeStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeAudits(t *testing.T) {
	st := newServeStore(t)
	ctx := context.Background()

	rep := &eval.AuditReport{
		Iterations: 1, Scenarios: 1, Models: []string{"gemma3:4b"},
		Summaries: map[string]*eval.ModelAuditSummary{
			"gemma3:4b": {Model: "gemma3:4b", TotalRuns: 1, SuccessfulRuns: 1, SuccessRate: 1.0},
		},
	}
	require.NoError(t, st.RecordAudit(ctx, rep, report.Markdown(rep)))

	router := newRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audits", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var audits []report.AuditRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &audits))
	require.Len(t, audits, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audits/"+audits[0].ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var audit report.AuditRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &audit))
	assert.Contains(t, audit.Markdown, "# LLM Quality Audit Report")
}
