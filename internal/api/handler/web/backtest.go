// internal/api/handler/web/backtest.go
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/newthinker/backtester/internal/api/response"
	"github.com/newthinker/backtester/internal/client"
	"github.com/newthinker/backtester/internal/core"
	"github.com/newthinker/backtester/internal/form"
	"github.com/newthinker/backtester/internal/present"
	"github.com/newthinker/backtester/internal/session"
	"go.uber.org/zap"
)

// SessionCookie carries the id of the browser's session.
const SessionCookie = "backtester_session"

// FieldData is one input on the form.
type FieldData struct {
	Name  string
	Label string
	Help  string
	Value string
	Error string
}

// SectionData groups form inputs under a heading.
type SectionData struct {
	Title  string
	Help   string
	Fields []FieldData
}

// BacktestData is the data for the backtest page.
type BacktestData struct {
	Title    string
	Sections []SectionData
	Status   session.Status
	Seq      uint64
	Result   *present.View
	// Error describes the failure of the latest submission, if any. The
	// previous Result stays on the page alongside it.
	Error string
}

type fieldSpec struct {
	name, label, help string
}

var formSections = []struct {
	title, help string
	fields      []fieldSpec
}{
	{
		fields: []fieldSpec{
			{form.FieldSymbols, "Symbols", "Symbols to backtest on, separated by commas."},
			{form.FieldStartDate, "Start Date", "Start date to start backtest on, inclusive. Year-month-day."},
			{form.FieldEndDate, "End Date", "End date to end backtest on, inclusive. Year-month-day."},
			{form.FieldStartingCash, "Starting Cash", "Initial cash to start backtest with."},
		},
	},
	{
		title: "Strategy Parameters",
		help:  "Parameters for constant price threshold strategy.",
		fields: []fieldSpec{
			{form.FieldThreshold, "Threshold", "Threshold of symbol price to trigger buy order."},
			{form.FieldDaysToClose, "Duration", "Duration to hold and then sell symbol."},
			{form.FieldQuantity, "Quantity", "Number of shares to buy and sell at a time."},
		},
	},
}

// Index renders an empty form. Every page load starts a new session, so no
// result is shown until the first submission completes.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	setSessionCookie(w, sess.ID())

	h.render(w, http.StatusOK, "backtest.html", newBacktestData(form.DefaultValues(), nil, sess.Snapshot()))
}

// Submit runs the submitted form and renders the session's display state.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	values := form.ValuesFromForm(r.PostForm)

	sess := h.session(w, r)

	// navigating away must not abandon a call that is already in flight
	out, err := h.runner.Run(context.WithoutCancel(r.Context()), sess, values)

	status := http.StatusOK
	var fieldErrs form.ValidationErrors
	if err != nil {
		status = response.StatusFor(err)
		errors.As(err, &fieldErrs)
		if status == http.StatusInternalServerError {
			h.logger.Error("backtest submission", zap.Error(err))
		}
	}

	h.render(w, status, "backtest.html", newBacktestData(values, fieldErrs, out.Snapshot))
}

// session returns the browser's session, starting a new one when the
// cookie is absent or has expired.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := h.sessions.Get(c.Value); ok {
			return sess
		}
	}
	sess := h.sessions.Create()
	setSessionCookie(w, sess.ID())
	return sess
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func newBacktestData(values form.Values, fieldErrs form.ValidationErrors, snap session.Snapshot) BacktestData {
	reasons := fieldErrs.Map()

	data := BacktestData{
		Title:  "Backtester",
		Status: snap.Status,
		Seq:    snap.Seq,
		Result: snap.View,
		Error:  failureMessage(snap.Err),
	}
	for _, sec := range formSections {
		sd := SectionData{Title: sec.title, Help: sec.help}
		for _, f := range sec.fields {
			sd.Fields = append(sd.Fields, FieldData{
				Name:  f.name,
				Label: f.label,
				Help:  f.help,
				Value: values.Get(f.name),
				Error: reasons[f.name],
			})
		}
		data.Sections = append(data.Sections, sd)
	}
	return data
}

func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	if code, ok := client.StatusCode(err); ok {
		return fmt.Sprintf("Error: %d", code)
	}
	switch {
	case errors.Is(err, core.ErrDeserialization):
		return "The backtest service returned a response that could not be read."
	case errors.Is(err, core.ErrTransport):
		return "Could not reach the backtest service."
	default:
		return "The backtest could not be run."
	}
}
