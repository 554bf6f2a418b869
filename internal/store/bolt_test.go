package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xsamyy/buywatch/internal/chain"
	"github.com/0xsamyy/buywatch/internal/watch"
)

func openTestStore(t *testing.T) *Bolt {
	t.Helper()
	st, err := NewBolt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleConfig() watch.GroupConfig {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return watch.GroupConfig{
		Network:      chain.BNB,
		TokenAddress: "0xabc",
		TokenName:    "Test Token",
		TokenSymbol:  "TST",
		EmojiGlyph:   "🚀",
		MinUSD:       25,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestBolt_SaveAndGet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	key := watch.Key{GroupID: 42, TokenAddress: "0xabc"}

	_, found, err := st.GetConfig(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, st.SaveConfig(ctx, key, sampleConfig()))

	got, found, err := st.GetConfig(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sampleConfig(), got)
}

func TestBolt_SaveReplaces(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	key := watch.Key{GroupID: 42, TokenAddress: "0xabc"}

	require.NoError(t, st.SaveConfig(ctx, key, sampleConfig()))

	updated := sampleConfig()
	updated.Active = false
	updated.EmojiGlyph = "🔥"
	require.NoError(t, st.SaveConfig(ctx, key, updated))

	got, found, err := st.GetConfig(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, got.Active)
	assert.Equal(t, "🔥", got.EmojiGlyph)

	n, err := st.CountConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBolt_DeleteIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	key := watch.Key{GroupID: 42, TokenAddress: "0xabc"}

	require.NoError(t, st.DeleteConfig(ctx, key)) // missing key: no-op

	require.NoError(t, st.SaveConfig(ctx, key, sampleConfig()))
	require.NoError(t, st.DeleteConfig(ctx, key))
	require.NoError(t, st.DeleteConfig(ctx, key))

	_, found, err := st.GetConfig(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBolt_ListConfigs(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	keys := []watch.Key{
		{GroupID: 42, TokenAddress: "0xaaa"},
		{GroupID: 42, TokenAddress: "0xbbb"},
		{GroupID: -1007, TokenAddress: "So11111111111111111111111111111111111111112"},
	}
	for _, k := range keys {
		cfg := sampleConfig()
		cfg.TokenAddress = k.TokenAddress
		require.NoError(t, st.SaveConfig(ctx, k, cfg))
	}

	all, err := st.ListConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, k := range keys {
		cfg, ok := all[k]
		require.True(t, ok, "missing key %s", k)
		assert.Equal(t, k.TokenAddress, cfg.TokenAddress)
	}

	n, err := st.CountConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	key := watch.Key{GroupID: 42, TokenAddress: "0xabc"}

	st, err := NewBolt(path)
	require.NoError(t, err)
	require.NoError(t, st.SaveConfig(ctx, key, sampleConfig()))
	require.NoError(t, st.Close())

	st2, err := NewBolt(path)
	require.NoError(t, err)
	defer st2.Close()

	got, found, err := st2.GetConfig(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sampleConfig(), got)
}
