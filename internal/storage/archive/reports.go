package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/core"
)

// Report is one completed backtest as archived.
type Report struct {
	SessionID   string                     `json:"sessionId"`
	Seq         uint64                     `json:"seq"`
	SubmittedAt time.Time                  `json:"submittedAt"`
	Request     backtest.BacktestRequest   `json:"request"`
	Response    *backtest.BacktestResponse `json:"response"`
}

// Path returns the object path of the report, partitioned by day.
func (r Report) Path() string {
	return fmt.Sprintf("reports/%s/%s-%d.json",
		r.SubmittedAt.UTC().Format("2006/01/02"), r.SessionID, r.Seq)
}

// Reports writes and reads reports through a Storage.
type Reports struct {
	storage Storage
}

// NewReports wraps storage.
func NewReports(storage Storage) *Reports {
	return &Reports{storage: storage}
}

// Save archives r and returns its path.
func (a *Reports) Save(ctx context.Context, r Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}
	path := r.Path()
	if err := a.storage.Write(ctx, path, data); err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}
	return path, nil
}

// Load reads the report stored at path.
func (a *Reports) Load(ctx context.Context, path string) (*Report, error) {
	data, err := a.storage.Read(ctx, path)
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return &r, nil
}

// List returns the paths of reports archived on day.
func (a *Reports) List(ctx context.Context, day time.Time) ([]string, error) {
	paths, err := a.storage.List(ctx, "reports/"+day.UTC().Format("2006/01/02"))
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return paths, nil
}
