package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kelokecl/keloke-trends-worker/internal/config"
	"github.com/Kelokecl/keloke-trends-worker/internal/events"
	"github.com/Kelokecl/keloke-trends-worker/internal/store"
	"github.com/Kelokecl/keloke-trends-worker/internal/worker"
)

func testDeps(t *testing.T, run func(ctx context.Context, p worker.RunParams) (worker.Summary, error)) Deps {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	cfg, _ := config.NormalizeAndValidate(config.Config{})
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	return Deps{DB: db.Pool, Hub: events.NewHub(), CfgVal: &cfgVal, RunBatch: run}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestMethodNotAllowed(t *testing.T) {
	mux := NewMux(testDeps(t, nil))

	for path, method := range map[string]string{
		"/run":    http.MethodGet,
		"/jobs":   http.MethodPost,
		"/seed":   http.MethodGet,
		"/items":  http.MethodDelete,
		"/secret": http.MethodGet,
		"/health": http.MethodPost,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", method, path)

		body := decodeBody(t, rec)
		require.Equal(t, false, body["ok"])
	}
}

func TestRunDefaultsFromConfig(t *testing.T) {
	var got worker.RunParams
	deps := testDeps(t, func(_ context.Context, p worker.RunParams) (worker.Summary, error) {
		got = p
		return worker.Summary{OK: true, SiteID: p.SiteID}, nil
	})
	mux := NewMux(deps)

	// empty body: site, batch and limit all come from config
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, "MLC", got.SiteID)
	require.Equal(t, config.DefaultBatch, got.Batch)
	require.Equal(t, config.DefaultLimit, got.Limit)
	require.Empty(t, got.HeaderToken)
}

func TestRunBodyAndBearerOverride(t *testing.T) {
	var got worker.RunParams
	deps := testDeps(t, func(_ context.Context, p worker.RunParams) (worker.Summary, error) {
		got = p
		return worker.Summary{OK: true}, nil
	})
	mux := NewMux(deps)

	req := httptest.NewRequest(http.MethodPost, "/run",
		strings.NewReader(`{"site_id":"MLA","batch":2,"limit":7}`))
	req.Header.Set("Authorization", "Bearer tok-abc")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, "MLA", got.SiteID)
	require.Equal(t, 2, got.Batch)
	require.Equal(t, 7, got.Limit)
	require.Equal(t, "tok-abc", got.HeaderToken)
}

func TestRunInProgressMapsTo409(t *testing.T) {
	deps := testDeps(t, func(context.Context, worker.RunParams) (worker.Summary, error) {
		return worker.Summary{}, worker.ErrRunInProgress
	})
	mux := NewMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, false, body["ok"])
	require.Equal(t, "run_in_progress", body["error"])
}

func TestRunRejectsMalformedBody(t *testing.T) {
	called := false
	deps := testDeps(t, func(context.Context, worker.RunParams) (worker.Summary, error) {
		called = true
		return worker.Summary{}, nil
	})
	mux := NewMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{"batch":`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, called)
}

func TestSeedAndListJobs(t *testing.T) {
	deps := testDeps(t, nil)
	mux := NewMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/seed",
		strings.NewReader(`{"site_id":"MLC","category_id":"MLC1055"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["ok"])
	require.NotZero(t, body["id"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		OK   bool        `json:"ok"`
		Jobs []store.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.True(t, listed.OK)
	require.Len(t, listed.Jobs, 1)
	require.Equal(t, "MLC1055", listed.Jobs[0].CategoryID)
	require.Equal(t, store.JobPending, listed.Jobs[0].Status)
}

func TestSeedValidatesInput(t *testing.T) {
	mux := NewMux(testDeps(t, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/seed",
		strings.NewReader(`{"site_id":" ","category_id":""}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	mux := NewMux(testDeps(t, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["ok"])
}

func TestEventsStreamThroughMiddlewareChain(t *testing.T) {
	deps := testDeps(t, nil)
	h := Chain(NewMux(deps), RequestID, Recover, AccessLog)

	// a pre-cancelled context lets ServeSSE emit the initial ping and return
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "the wrapped writer must still flush")
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), `{"type":"ping"}`)
	require.True(t, rec.Flushed)
}

func TestSetClientSecretWithoutKeyringAccount(t *testing.T) {
	// the default config carries no keyring account, so the handler rejects
	// before touching the OS keychain
	mux := NewMux(testDeps(t, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/secret",
		strings.NewReader(`{"secret":"shh"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, false, decodeBody(t, rec)["ok"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/secret", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetClientSecretRejectsMalformedBody(t *testing.T) {
	mux := NewMux(testDeps(t, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/secret", strings.NewReader(`{"secret":`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID, Recover)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, false, decodeBody(t, rec)["ok"])
}
