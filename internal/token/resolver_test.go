package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0xsamyy/buywatch/internal/chain"
)

const bnbAddr = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

func TestHTTPResolver_Resolve(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/tokens/bnb/"+bnbAddr, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Tether USD","symbol":"USDT"}`))
	}))
	defer server.Close()

	r := NewHTTPResolver(server.URL, zap.NewNop())

	id, err := r.Resolve(context.Background(), chain.BNB, bnbAddr)
	require.NoError(t, err)
	assert.Equal(t, Identity{Name: "Tether USD", Symbol: "USDT"}, id)

	// Second resolve hits the cache, not the server.
	id2, err := r.Resolve(context.Background(), chain.BNB, bnbAddr)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, int64(1), hits.Load())
}

func TestHTTPResolver_InvalidAddressSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	r := NewHTTPResolver(server.URL, zap.NewNop())

	_, err := r.Resolve(context.Background(), chain.BNB, "not-an-address")
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)
	assert.Equal(t, int64(0), hits.Load(), "validation failures must not reach the API")
}

func TestHTTPResolver_LookupFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	r := NewHTTPResolver(server.URL, zap.NewNop())

	_, err := r.Resolve(context.Background(), chain.BNB, bnbAddr)
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestHTTPResolver_MissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"","symbol":""}`))
	}))
	defer server.Close()

	r := NewHTTPResolver(server.URL, zap.NewNop())

	_, err := r.Resolve(context.Background(), chain.BNB, bnbAddr)
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestHTTPResolver_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewHTTPResolver(server.URL, zap.NewNop())

	// Trip the breaker (opens after more than 5 consecutive failures),
	// then verify further calls fail fast without touching the server.
	for i := 0; i < 10; i++ {
		_, err := r.Resolve(context.Background(), chain.BNB, bnbAddr)
		assert.ErrorIs(t, err, ErrLookupFailed)
	}
	assert.Less(t, hits.Load(), int64(10))
}
