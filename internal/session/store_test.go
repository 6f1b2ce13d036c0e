package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(10, time.Hour)

	sess := store.Create()
	require.NotEmpty(t, sess.ID())

	got, ok := store.Get(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, got)
}

func TestStore_UniqueIDs(t *testing.T) {
	store := NewStore(10, time.Hour)
	assert.NotEqual(t, store.Create().ID(), store.Create().ID())
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(10, time.Hour)

	_, ok := store.Get("nonexistent")
	assert.False(t, ok)
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	first := store.Create()
	store.Create()
	store.Create() // evicts first

	_, ok := store.Get(first.ID())
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len())
}

func TestStore_ExpiresIdleSessions(t *testing.T) {
	store := NewStore(10, time.Millisecond)

	sess := store.Create()
	time.Sleep(5 * time.Millisecond)

	_, ok := store.Get(sess.ID())
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestStore_Prune(t *testing.T) {
	store := NewStore(10, 20*time.Millisecond)

	store.Create()
	store.Create()
	time.Sleep(40 * time.Millisecond)
	fresh := store.Create()

	assert.Equal(t, 2, store.Prune())
	_, ok := store.Get(fresh.ID())
	assert.True(t, ok)
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	store := NewStore(10, 0)
	sess := store.Create()
	time.Sleep(time.Millisecond)

	_, ok := store.Get(sess.ID())
	assert.True(t, ok)
	assert.Zero(t, store.Prune())
}
