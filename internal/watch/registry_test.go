package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	key := Key{GroupID: 42, TokenAddress: "TOKEN1"}

	require.NoError(t, r.Register(&Watch{Key: key}))
	assert.ErrorIs(t, r.Register(&Watch{Key: key}), ErrAlreadyWatching)

	got, ok := r.Get(key)
	require.True(t, ok)
	assert.Equal(t, key, got.Key)
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	key := Key{GroupID: 42, TokenAddress: "TOKEN1"}

	// Unregistering a never-registered key must be a safe no-op.
	r.Unregister(key)

	require.NoError(t, r.Register(&Watch{Key: key}))
	r.Unregister(key)
	r.Unregister(key)

	_, ok := r.Get(key)
	assert.False(t, ok)

	// The key is reusable after removal.
	require.NoError(t, r.Register(&Watch{Key: key}))
}

func TestRegistry_ListByGroup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Watch{Key: Key{GroupID: 42, TokenAddress: "BBB"}}))
	require.NoError(t, r.Register(&Watch{Key: Key{GroupID: 42, TokenAddress: "AAA"}}))
	require.NoError(t, r.Register(&Watch{Key: Key{GroupID: 7, TokenAddress: "CCC"}}))

	got := r.ListByGroup(42)
	require.Len(t, got, 2)
	assert.Equal(t, "AAA", got[0].Key.TokenAddress)
	assert.Equal(t, "BBB", got[1].Key.TokenAddress)

	assert.Empty(t, r.ListByGroup(99))
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry()
	healthy := &Watch{Key: Key{GroupID: 1, TokenAddress: "AAA"}}
	broken := &Watch{Key: Key{GroupID: 1, TokenAddress: "BBB"}}
	broken.degraded.Store(true)

	require.NoError(t, r.Register(healthy))
	require.NoError(t, r.Register(broken))

	tracked, degraded := r.Stats()
	assert.Equal(t, 2, tracked)
	assert.Equal(t, 1, degraded)
}

func TestParseKey(t *testing.T) {
	key := Key{GroupID: -100123, TokenAddress: "0xabc/def"}
	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseKey("not-a-key")
	assert.Error(t, err)
}
