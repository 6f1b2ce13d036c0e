// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/metrics"
	"github.com/newthinker/backtester/internal/pipeline"
	"github.com/newthinker/backtester/internal/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubService struct{}

func (stubService) Submit(ctx context.Context, req backtest.BacktestRequest) (*backtest.BacktestResponse, error) {
	return &backtest.BacktestResponse{ProfitLoss: 10, Trades: []backtest.TradeInfo{}}, nil
}

func newTestServer(t *testing.T, cfg Config, reg *metrics.Registry) *Server {
	t.Helper()
	deps := Dependencies{
		Runner:   pipeline.NewRunner(stubService{}),
		Sessions: session.NewStore(10, time.Hour),
		Metrics:  reg,
	}
	srv, err := NewServer(cfg, deps, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", Port: 0}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Data["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_Index(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Run backtest")
}

func TestServer_UnknownPath(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SubmitMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/backtest", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_SubmitThenReadSession(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	body := `{"symbols":"NVDA","startDate":"2024-1-1","endDate":"2025-1-1","startingCash":"1000","threshold":"140","daysToClose":"10","quantity":"5"}`
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/backtests", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Data struct {
			Session struct {
				SessionID string `json:"session_id"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.Session.SessionID
	require.NotEmpty(t, id)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/"+url.PathEscape(id), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"succeeded"`)
	assert.Contains(t, w.Body.String(), `"profitLoss":"$10.00"`)
}

func TestServer_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := newTestServer(t, Config{MetricsPath: "/metrics"}, reg)

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/health", nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.GreaterOrEqual(t, mustGatherCount(t, reg), 1)
}

func TestServer_MetricsDisabled(t *testing.T) {
	srv := newTestServer(t, Config{MetricsPath: "/metrics"}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func mustGatherCount(t *testing.T, reg *metrics.Registry) int {
	t.Helper()
	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	return n
}
