// Package pipeline runs one form submission end to end: parse, build,
// submit, present, and update the session's display state.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/client"
	"github.com/newthinker/backtester/internal/form"
	"github.com/newthinker/backtester/internal/present"
	"github.com/newthinker/backtester/internal/session"
	"github.com/newthinker/backtester/internal/storage/archive"
	"go.uber.org/zap"
)

// archiveTimeout bounds a background report write.
const archiveTimeout = 30 * time.Second

// Submitter sends a request to the backtest service.
type Submitter interface {
	Submit(ctx context.Context, req backtest.BacktestRequest) (*backtest.BacktestResponse, error)
}

// Observer receives pipeline events for metrics.
type Observer interface {
	RecordStale()
	RecordArchive(status string)
}

// Outcome describes one run.
type Outcome struct {
	Request  backtest.BacktestRequest
	Response *backtest.BacktestResponse
	Seq      uint64
	// Applied is false when a newer submission was issued before this one
	// completed, so its result was discarded.
	Applied  bool
	Snapshot session.Snapshot
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithReports archives every successful result in the background.
func WithReports(reports *archive.Reports) Option {
	return func(r *Runner) {
		r.reports = reports
	}
}

// Runner drives submissions against one backtest service.
type Runner struct {
	submitter Submitter
	logger    *zap.Logger
	observer  Observer
	reports   *archive.Reports

	// pending tracks archive writes still in flight
	pending sync.WaitGroup
}

// NewRunner creates a runner.
func NewRunner(submitter Submitter, opts ...Option) *Runner {
	r := &Runner{
		submitter: submitter,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run submits values on behalf of sess.
//
// Invalid input is reported without touching the session or the network.
// Otherwise the session goes pending, and the result is applied only if no
// newer submission was issued in the meantime. The returned error is the
// submission's own failure even when it was too stale to be displayed.
func (r *Runner) Run(ctx context.Context, sess *session.Session, values form.Values) (Outcome, error) {
	req, err := form.BuildFromValues(values)
	if err != nil {
		return Outcome{Snapshot: sess.Snapshot()}, err
	}

	seq := sess.Begin()
	log := r.logger.With(zap.String("session", sess.ID()), zap.Uint64("seq", seq))
	log.Info("backtest submitted",
		zap.Strings("symbols", req.Symbols),
		zap.Stringer("start", req.StartDate),
		zap.Stringer("end", req.EndDate),
	)

	out := Outcome{Request: req, Seq: seq}

	resp, err := r.submitter.Submit(ctx, req)
	if err != nil {
		out.Applied = sess.Fail(seq, err)
		r.noteStale(log, out.Applied)
		log.Warn("backtest failed", zap.String("outcome", client.Outcome(err)), zap.Error(err))
		out.Snapshot = sess.Snapshot()
		return out, err
	}

	out.Response = resp
	out.Applied = sess.Succeed(seq, present.Present(resp))
	r.noteStale(log, out.Applied)
	log.Info("backtest completed",
		zap.Int("trades", len(resp.Trades)),
		zap.Float64("profit_loss", resp.ProfitLoss),
		zap.Bool("applied", out.Applied),
	)

	r.archiveAsync(ctx, log, archive.Report{
		SessionID:   sess.ID(),
		Seq:         seq,
		SubmittedAt: time.Now().UTC(),
		Request:     req,
		Response:    resp,
	})

	out.Snapshot = sess.Snapshot()
	return out, nil
}

func (r *Runner) noteStale(log *zap.Logger, applied bool) {
	if applied {
		return
	}
	log.Debug("discarding stale result")
	if r.observer != nil {
		r.observer.RecordStale()
	}
}

// Wait blocks until every archive write started so far has finished.
func (r *Runner) Wait() {
	r.pending.Wait()
}

// archiveAsync writes report without holding up the caller. The write
// outlives ctx's cancellation but not archiveTimeout.
func (r *Runner) archiveAsync(ctx context.Context, log *zap.Logger, report archive.Report) {
	if r.reports == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		defer cancel()
		r.archive(ctx, log, report)
	}()
}

func (r *Runner) archive(ctx context.Context, log *zap.Logger, report archive.Report) {
	status := "ok"
	path, err := r.reports.Save(ctx, report)
	if err != nil {
		status = "error"
		log.Error("archiving report", zap.Error(err))
	} else {
		log.Debug("report archived", zap.String("path", path))
	}
	if r.observer != nil {
		r.observer.RecordArchive(status)
	}
}
