package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/newthinker/backtester/internal/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(pl string) present.View {
	return present.View{Summary: present.Summary{ProfitLoss: pl}}
}

func TestSession_StartsIdle(t *testing.T) {
	snap := New("s1").Snapshot()

	assert.Equal(t, "s1", snap.ID)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Zero(t, snap.Seq)
	assert.False(t, snap.HasResult())
	assert.NoError(t, snap.Err)
}

func TestSession_SuccessLifecycle(t *testing.T) {
	s := New("s1")

	seq := s.Begin()
	assert.Equal(t, uint64(1), seq)
	assert.Equal(t, StatusPending, s.Snapshot().Status)

	require.True(t, s.Succeed(seq, view("$1.00")))

	snap := s.Snapshot()
	assert.Equal(t, StatusSucceeded, snap.Status)
	require.True(t, snap.HasResult())
	assert.Equal(t, "$1.00", snap.View.Summary.ProfitLoss)
}

func TestSession_FailureKeepsPreviousResult(t *testing.T) {
	s := New("s1")
	s.Succeed(s.Begin(), view("$1.00"))

	seq := s.Begin()
	require.True(t, s.Fail(seq, errors.New("status 500")))

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.EqualError(t, snap.Err, "status 500")
	require.True(t, snap.HasResult())
	assert.Equal(t, "$1.00", snap.View.Summary.ProfitLoss)
}

func TestSession_BeginClearsError(t *testing.T) {
	s := New("s1")
	s.Fail(s.Begin(), errors.New("boom"))

	s.Begin()
	assert.NoError(t, s.Snapshot().Err)
}

func TestSession_StaleCompletionDiscarded(t *testing.T) {
	s := New("s1")

	first := s.Begin()
	second := s.Begin()

	// the newer call finishes first
	require.True(t, s.Succeed(second, view("$2.00")))
	// the older call resolves last and must not win
	assert.False(t, s.Succeed(first, view("$1.00")))
	assert.False(t, s.Fail(first, errors.New("late")))

	snap := s.Snapshot()
	assert.Equal(t, StatusSucceeded, snap.Status)
	assert.Equal(t, "$2.00", snap.View.Summary.ProfitLoss)
	assert.Equal(t, second, snap.Seq)
}

func TestSession_PendingUntilLatestResolves(t *testing.T) {
	s := New("s1")

	first := s.Begin()
	s.Begin()

	assert.False(t, s.Succeed(first, view("$1.00")))
	snap := s.Snapshot()
	assert.Equal(t, StatusPending, snap.Status)
	assert.False(t, snap.HasResult())
}

func TestSession_IdenticalSubmissionsSettleIdentically(t *testing.T) {
	s := New("s1")
	s.Succeed(s.Begin(), view("$3.00"))
	first := *s.Snapshot().View

	s.Succeed(s.Begin(), view("$3.00"))
	assert.Equal(t, first, *s.Snapshot().View)
}

func TestSession_ConcurrentSubmissions(t *testing.T) {
	s := New("s1")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq := s.Begin()
			s.Succeed(seq, view("$1.00"))
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, uint64(n), snap.Seq)
}
