// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/newthinker/backtester/internal/api/response"
	"github.com/newthinker/backtester/internal/core"
	"github.com/newthinker/backtester/internal/form"
	"github.com/newthinker/backtester/internal/pipeline"
	"github.com/newthinker/backtester/internal/present"
	"github.com/newthinker/backtester/internal/session"
)

// Runner runs one submission for a session.
type Runner interface {
	Run(ctx context.Context, sess *session.Session, values form.Values) (pipeline.Outcome, error)
}

// SessionJSON is the wire form of a session snapshot.
type SessionJSON struct {
	SessionID string                `json:"session_id"`
	Status    session.Status        `json:"status"`
	Seq       uint64                `json:"seq"`
	UpdatedAt time.Time             `json:"updated_at"`
	Result    *present.View         `json:"result,omitempty"`
	Error     *response.ErrorDetail `json:"error,omitempty"`
}

// NewSessionJSON converts a snapshot.
func NewSessionJSON(snap session.Snapshot) SessionJSON {
	out := SessionJSON{
		SessionID: snap.ID,
		Status:    snap.Status,
		Seq:       snap.Seq,
		UpdatedAt: snap.UpdatedAt,
		Result:    snap.View,
	}
	if snap.Err != nil {
		detail := response.Detail(snap.Err)
		out.Error = &detail
	}
	return out
}

// BacktestHandler exposes the submission pipeline as JSON.
type BacktestHandler struct {
	runner   Runner
	sessions *session.Store
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(runner Runner, sessions *session.Store) *BacktestHandler {
	return &BacktestHandler{
		runner:   runner,
		sessions: sessions,
	}
}

// Create submits a backtest. The body is a flat object of raw form fields,
// e.g. {"symbols":"NVDA,GOOGL","startDate":"2024-1-1",...}; missing fields
// are treated as empty. The optional session_id query parameter continues
// an existing session, otherwise a new one is created.
//
// The call blocks until the service answers.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var raw map[string]string
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, err))
		return
	}

	fields := url.Values{}
	for k, v := range raw {
		fields.Set(k, v)
	}

	sess := h.lookup(r.URL.Query().Get("session_id"))

	// a client hanging up must not abandon the call
	out, err := h.runner.Run(context.WithoutCancel(r.Context()), sess, form.ValuesFromForm(fields))
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"applied": out.Applied,
		"session": NewSessionJSON(out.Snapshot),
	})
}

// GetSession returns the display state of a session.
func (h *BacktestHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := h.sessions.Get(id)
	if !ok {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrSessionNotFound, nil))
		return
	}

	response.JSON(w, http.StatusOK, NewSessionJSON(sess.Snapshot()))
}

func (h *BacktestHandler) lookup(id string) *session.Session {
	if id != "" {
		if sess, ok := h.sessions.Get(id); ok {
			return sess
		}
	}
	return h.sessions.Create()
}
