// internal/api/handler/web/backtest_test.go
package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/client"
	"github.com/newthinker/backtester/internal/core"
	"github.com/newthinker/backtester/internal/form"
	"github.com/newthinker/backtester/internal/pipeline"
	"github.com/newthinker/backtester/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	resp  *backtest.BacktestResponse
	err   error
	calls int
}

func (s *stubService) Submit(ctx context.Context, req backtest.BacktestRequest) (*backtest.BacktestResponse, error) {
	s.calls++
	return s.resp, s.err
}

func sampleResponse() *backtest.BacktestResponse {
	return &backtest.BacktestResponse{
		ProfitLoss:       1234.5,
		AnnualizedReturn: 0.0523,
		MaxDrawdown:      0.081,
		WinProbability:   0.6,
		Trades: []backtest.TradeInfo{
			{Side: "buy", Symbol: "NVDA", Shares: 5, Price: 130.25, Time: "2024-01-02T00:00:00"},
			{Side: "sell", Symbol: "NVDA", Shares: 5, Price: 141, Time: "2024-01-12T00:00:00+00:00"},
		},
	}
}

func newTestHandler(t *testing.T, svc *stubService) (*Handler, *session.Store) {
	t.Helper()
	store := session.NewStore(10, time.Hour)
	h, err := NewHandlerWithFS(TemplateFS(), pipeline.NewRunner(svc), store)
	require.NoError(t, err)
	return h, store
}

func formBody(v form.Values) string {
	f := url.Values{}
	for _, name := range form.FieldOrder {
		f.Set(name, v.Get(name))
	}
	return f.Encode()
}

func postForm(h *Handler, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/backtest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.Submit(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestIndex_RendersDefaults(t *testing.T) {
	h, store := newTestHandler(t, &stubService{})

	w := httptest.NewRecorder()
	h.Index(w, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `name="symbols" value="NVDA,GOOGL"`)
	assert.Contains(t, body, `name="startDate" value="2024-1-1"`)
	assert.Contains(t, body, `name="quantity" value="5"`)
	assert.Contains(t, body, "Strategy Parameters")
	assert.NotContains(t, body, "Backtest Results")

	c := sessionCookie(t, w)
	_, ok := store.Get(c.Value)
	assert.True(t, ok)
}

func TestIndex_EveryLoadStartsFresh(t *testing.T) {
	h, store := newTestHandler(t, &stubService{})

	w1 := httptest.NewRecorder()
	h.Index(w1, httptest.NewRequest("GET", "/", nil))
	w2 := httptest.NewRecorder()
	h.Index(w2, httptest.NewRequest("GET", "/", nil))

	assert.NotEqual(t, sessionCookie(t, w1).Value, sessionCookie(t, w2).Value)
	assert.Equal(t, 2, store.Len())
}

func TestSubmit_Success(t *testing.T) {
	svc := &stubService{resp: sampleResponse()}
	h, _ := newTestHandler(t, svc)

	w := postForm(h, formBody(form.DefaultValues()), nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Backtest Results")
	assert.Contains(t, body, "$1234.50")
	assert.Contains(t, body, "5.2300%")
	assert.Contains(t, body, "8.1000%")
	assert.Contains(t, body, "60.0000%")
	assert.Contains(t, body, `<tr class="buy">`)
	assert.Contains(t, body, `<tr class="sell">`)
	assert.Contains(t, body, "Tue Jan 02 2024")
	assert.Contains(t, body, "$651.25")
	assert.Less(t, strings.Index(body, `class="buy"`), strings.Index(body, `class="sell"`))
	assert.Equal(t, 1, svc.calls)
}

func TestSubmit_EmptyTrades(t *testing.T) {
	svc := &stubService{resp: &backtest.BacktestResponse{Trades: []backtest.TradeInfo{}}}
	h, _ := newTestHandler(t, svc)

	w := postForm(h, formBody(form.DefaultValues()), nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "$0.00")
	assert.NotContains(t, body, `<tr class=`)
}

func TestSubmit_InvalidInputBlocksSubmission(t *testing.T) {
	svc := &stubService{resp: sampleResponse()}
	h, _ := newTestHandler(t, svc)

	values := form.DefaultValues()
	values.Quantity = "abc"
	w := postForm(h, formBody(values), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `class="field-error">Quantity`)
	assert.Contains(t, body, `name="quantity" value="abc"`)
	assert.NotContains(t, body, "Backtest Results")
	assert.Zero(t, svc.calls)
}

func TestSubmit_FailureKeepsPreviousResult(t *testing.T) {
	svc := &stubService{resp: sampleResponse()}
	h, _ := newTestHandler(t, svc)

	first := postForm(h, formBody(form.DefaultValues()), nil)
	require.Equal(t, http.StatusOK, first.Code)
	cookie := sessionCookie(t, first)

	svc.resp = nil
	svc.err = core.WrapError(core.ErrTransport, &client.StatusError{StatusCode: 500})
	second := postForm(h, formBody(form.DefaultValues()), cookie)

	assert.Equal(t, http.StatusBadGateway, second.Code)
	body := second.Body.String()
	assert.Contains(t, body, "Error: 500")
	assert.Contains(t, body, "$1234.50")
}

func TestSubmit_MalformedResponse(t *testing.T) {
	svc := &stubService{err: core.WrapError(core.ErrDeserialization, nil)}
	h, _ := newTestHandler(t, svc)

	w := postForm(h, formBody(form.DefaultValues()), nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "could not be read")
	assert.NotContains(t, w.Body.String(), "Backtest Results")
}

func TestSubmit_ExpiredCookieStartsNewSession(t *testing.T) {
	svc := &stubService{resp: sampleResponse()}
	h, store := newTestHandler(t, svc)

	w := postForm(h, formBody(form.DefaultValues()), &http.Cookie{Name: SessionCookie, Value: "gone"})

	require.Equal(t, http.StatusOK, w.Code)
	c := sessionCookie(t, w)
	assert.NotEqual(t, "gone", c.Value)
	sess, ok := store.Get(c.Value)
	require.True(t, ok)
	assert.Equal(t, session.StatusSucceeded, sess.Snapshot().Status)
}

func TestNewHandler_TemplatesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layout.html"),
		[]byte(`<title>{{.Title}}</title>{{template "content" .}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backtest.html"),
		[]byte(`{{define "content"}}custom {{.Status}}{{end}}`), 0o644))

	h, err := NewHandler(dir, pipeline.NewRunner(&stubService{}), session.NewStore(10, time.Hour))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.Index(w, httptest.NewRequest("GET", "/", nil))
	assert.Contains(t, w.Body.String(), "custom idle")
}

func TestNewHandler_MissingTemplates(t *testing.T) {
	_, err := NewHandler(t.TempDir(), pipeline.NewRunner(&stubService{}), session.NewStore(10, time.Hour))
	assert.Error(t, err)
}
