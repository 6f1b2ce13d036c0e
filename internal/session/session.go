// Package session tracks the display state of backtest submissions.
package session

import (
	"sync"
	"time"

	"github.com/newthinker/backtester/internal/present"
)

// Status is the state of the most recently issued submission.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID     string
	Status Status
	// Seq is the most recently issued sequence number, 0 before the first submission.
	Seq uint64
	// View is the last successful result. A failure leaves it in place.
	View *present.View
	// Err is set only while Status is StatusFailed.
	Err       error
	UpdatedAt time.Time
}

// HasResult reports whether a result is on display.
func (s Snapshot) HasResult() bool {
	return s.View != nil
}

// Session holds one display slot. Each submission takes a sequence number
// from Begin; only the most recently issued number may change the slot, so
// a slow older call can never overwrite a newer result.
type Session struct {
	id string

	mu        sync.Mutex
	issued    uint64
	status    Status
	view      *present.View
	err       error
	updatedAt time.Time
}

// New creates an idle session.
func New(id string) *Session {
	return &Session{
		id:        id,
		status:    StatusIdle,
		updatedAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Begin issues the next sequence number and marks the session pending.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued++
	s.status = StatusPending
	s.err = nil
	s.updatedAt = time.Now()
	return s.issued
}

// Succeed replaces the displayed result if seq is still the latest.
// It reports whether the result was applied.
func (s *Session) Succeed(seq uint64, view present.View) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.issued {
		return false
	}
	s.status = StatusSucceeded
	s.view = &view
	s.err = nil
	s.updatedAt = time.Now()
	return true
}

// Fail records err if seq is still the latest. The previous result stays.
func (s *Session) Fail(seq uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.issued {
		return false
	}
	s.status = StatusFailed
	s.err = err
	s.updatedAt = time.Now()
	return true
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:        s.id,
		Status:    s.status,
		Seq:       s.issued,
		View:      s.view,
		Err:       s.err,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) lastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
