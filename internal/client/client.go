// Package client submits backtest requests to the remote backtest service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/core"
	"go.uber.org/zap"
)

// BacktestPath is the service endpoint that runs a backtest.
const BacktestPath = "/api/backtest"

// DefaultBaseURL is where the backtest service listens by default.
const DefaultBaseURL = "http://127.0.0.1:8000"

// Recorder observes submission outcomes.
type Recorder interface {
	RecordSubmission(outcome string, duration float64)
}

// StatusError reports a non-2xx answer from the service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusCode extracts the HTTP status of a failed submission.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// Client talks to the backtest service. It never retries and sets no
// timeout of its own; callers bound a call through the context.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	recorder Recorder
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the full backtest URL.
func (c *Client) Endpoint() string {
	return c.baseURL + BacktestPath
}

// Submit sends one backtest request and waits for the result.
func (c *Client) Submit(ctx context.Context, req backtest.BacktestRequest) (*backtest.BacktestResponse, error) {
	start := time.Now()
	resp, err := c.submit(ctx, req)
	c.record(err, time.Since(start))
	return resp, err
}

func (c *Client) submit(ctx context.Context, req backtest.BacktestRequest) (*backtest.BacktestResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("encoding request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, core.WrapError(core.ErrTransport, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("submitting backtest",
		zap.String("url", c.Endpoint()),
		zap.Strings("symbols", req.Symbols),
		zap.Stringer("start", req.StartDate),
		zap.Stringer("end", req.EndDate),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, core.WrapError(core.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.WrapError(core.ErrTransport, &StatusError{StatusCode: resp.StatusCode})
	}

	result, err := decodeResponse(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.ErrDeserialization, err)
	}

	c.logger.Debug("backtest completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("trades", len(result.Trades)),
	)
	return result, nil
}

func (c *Client) record(err error, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordSubmission(Outcome(err), elapsed.Seconds())
}

// Outcome classifies a submission result for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrDeserialization):
		return "malformed"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid"
	default:
		if _, ok := StatusCode(err); ok {
			return "status"
		}
		return "transport"
	}
}
