package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0xsamyy/buywatch/internal/chain"
)

// Identity is the canonical display identity of a token.
type Identity struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// ErrLookupFailed is returned when the upstream metadata service could not
// answer (network error, timeout, non-200, open breaker). The address
// itself may be fine; callers may retry.
var ErrLookupFailed = errors.New("token lookup failed")

// Resolver resolves a token address to its display identity.
type Resolver interface {
	Resolve(ctx context.Context, network chain.Network, address string) (Identity, error)
}

// HTTPResolver resolves identities against a metadata HTTP API
// (GET {base}/tokens/{network}/{address} -> {"name":..., "symbol":...}).
// Requests are rate-limited and go through a circuit breaker so a dying
// upstream fails fast instead of piling up timeouts. Resolved identities
// are cached for the process lifetime; token names do not change.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      sync.Map // "network/address" -> Identity
	log        *zap.Logger
}

// NewHTTPResolver constructs a resolver for the given API base URL.
func NewHTTPResolver(baseURL string, log *zap.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "token-metadata",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		log: log.Named("resolver"),
	}
}

// Resolve validates the address locally, then fetches the identity.
// Validation failures surface as chain.ErrInvalidAddress; everything
// past validation that goes wrong surfaces as ErrLookupFailed.
func (r *HTTPResolver) Resolve(ctx context.Context, network chain.Network, address string) (Identity, error) {
	address = strings.TrimSpace(address)
	if err := chain.ValidateAddress(network, address); err != nil {
		return Identity{}, err
	}

	cacheKey := string(network) + "/" + address
	if cached, ok := r.cache.Load(cacheKey); ok {
		return cached.(Identity), nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	result, err := r.breaker.Execute(func() (any, error) {
		return r.fetch(ctx, network, address)
	})
	if err != nil {
		r.log.Warn("identity lookup failed",
			zap.String("network", string(network)),
			zap.String("address", address),
			zap.Error(err))
		return Identity{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	id := result.(Identity)
	r.cache.Store(cacheKey, id)
	return id, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, network chain.Network, address string) (Identity, error) {
	url := fmt.Sprintf("%s/tokens/%s/%s", r.baseURL, network, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Identity{}, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("metadata API returned %d", resp.StatusCode)
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return Identity{}, fmt.Errorf("decode metadata response: %w", err)
	}
	if id.Name == "" || id.Symbol == "" {
		return Identity{}, fmt.Errorf("metadata response missing name/symbol")
	}
	return id, nil
}
