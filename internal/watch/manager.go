package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xsamyy/buywatch/internal/chain"
	"github.com/0xsamyy/buywatch/internal/feed"
	"github.com/0xsamyy/buywatch/internal/notify"
	"github.com/0xsamyy/buywatch/internal/token"
)

// deliverTimeout bounds a single notification send. A slow chat platform
// must not back up the feed indefinitely.
const deliverTimeout = 15 * time.Second

// Delivery is the outbound sink for rendered notifications. Failures are
// the sink's problem to report but never the manager's reason to stop a
// feed: one bad delivery must not cost future ones.
type Delivery interface {
	Deliver(ctx context.Context, groupID int64, p notify.Payload) error
}

// Manager is the only component that starts or stops purchase feeds.
// It orchestrates resolution, feed establishment, registration, and the
// per-watch event pump.
type Manager struct {
	registry  *Registry
	resolver  token.Resolver
	opener    feed.Opener
	formatter *notify.Formatter
	delivery  Delivery
	log       *zap.Logger

	// One lock per group serializes start/stop/stopAll for that group's
	// watches, so a replace can never interleave with another start and
	// a start can never race ahead of a pending StopAll.
	gmu    sync.Mutex
	groups map[int64]*sync.Mutex
}

// NewManager wires a manager. The registry is owned by the caller so
// tests can run several independent managers side by side.
func NewManager(registry *Registry, resolver token.Resolver, opener feed.Opener, formatter *notify.Formatter, delivery Delivery, log *zap.Logger) *Manager {
	return &Manager{
		registry:  registry,
		resolver:  resolver,
		opener:    opener,
		formatter: formatter,
		delivery:  delivery,
		log:       log.Named("watch"),
		groups:    make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) groupLock(groupID int64) *sync.Mutex {
	m.gmu.Lock()
	defer m.gmu.Unlock()
	mu, ok := m.groups[groupID]
	if !ok {
		mu = &sync.Mutex{}
		m.groups[groupID] = mu
	}
	return mu
}

// Start resolves the token identity if needed, atomically replaces any
// existing watch for key, opens a fresh feed and registers the watch.
// On any failure no watch is left registered and the call is safe to
// retry. Callers should treat Start as long-running: both resolution and
// feed establishment may block on network I/O.
func (m *Manager) Start(ctx context.Context, key Key, cfg GroupConfig) (token.Identity, error) {
	mu := m.groupLock(key.GroupID)
	mu.Lock()
	defer mu.Unlock()

	if !cfg.Resolved() {
		id, err := m.resolver.Resolve(ctx, cfg.Network, key.TokenAddress)
		if err != nil {
			if errors.Is(err, chain.ErrInvalidAddress) || errors.Is(err, chain.ErrUnknownNetwork) {
				return token.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
			}
			return token.Identity{}, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		cfg.TokenName = id.Name
		cfg.TokenSymbol = id.Symbol
	}
	cfg.TokenAddress = key.TokenAddress
	cfg.Active = true

	// Replace path: never two live feeds for one key, so release the
	// previous watch fully before opening the new feed.
	if prev, ok := m.registry.Get(key); ok {
		m.release(prev)
	}

	// A shutdown or user stop that cancelled ctx while we held the lock
	// wins: abandon the start rather than register a doomed watch.
	if err := ctx.Err(); err != nil {
		return token.Identity{}, err
	}

	f, err := m.opener.Open(ctx, feed.Params{
		Network:      cfg.Network,
		TokenAddress: key.TokenAddress,
		MinUSD:       cfg.MinUSD,
	})
	if err != nil {
		return token.Identity{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	w := &Watch{
		Key:    key,
		Config: cfg,
		feed:   f,
		done:   make(chan struct{}),
	}
	if err := m.registry.Register(w); err != nil {
		// Unreachable while start/stop are serialized per group; do not
		// leak the feed if it ever happens.
		f.Stop()
		return token.Identity{}, err
	}

	go m.pump(w)

	m.log.Info("watch started",
		zap.String("watch", key.String()),
		zap.String("network", string(cfg.Network)),
		zap.String("symbol", cfg.TokenSymbol))
	return token.Identity{Name: cfg.TokenName, Symbol: cfg.TokenSymbol}, nil
}

// Stop tears down the watch for key. Always succeeds: stopping a key
// that has no watch is a no-op, and stopping twice is safe.
func (m *Manager) Stop(key Key) {
	mu := m.groupLock(key.GroupID)
	mu.Lock()
	defer mu.Unlock()

	if w, ok := m.registry.Get(key); ok {
		m.release(w)
		m.log.Info("watch stopped", zap.String("watch", key.String()))
	}
}

// StopAll tears down every watch belonging to groupID. Holding the group
// lock for the whole sweep keeps a concurrent Start for the same group
// from slipping a new feed past the teardown.
func (m *Manager) StopAll(groupID int64) {
	mu := m.groupLock(groupID)
	mu.Lock()
	defer mu.Unlock()

	for _, w := range m.registry.ListByGroup(groupID) {
		m.release(w)
	}
	m.log.Info("group watches stopped", zap.Int64("group", groupID))
}

// Shutdown stops every watch across all groups. Used on process exit.
func (m *Manager) Shutdown() {
	seen := make(map[int64]bool)
	for _, w := range m.registry.List() {
		seen[w.Key.GroupID] = true
	}
	for groupID := range seen {
		m.StopAll(groupID)
	}
}

// release stops the feed, waits for the pump to drain, and unregisters.
// After release returns, no further event from that feed can reach the
// delivery sink. Callers must hold the group lock.
func (m *Manager) release(w *Watch) {
	w.feed.Stop()
	<-w.done
	m.registry.Unregister(w.Key)
}

// Status describes the watch state for a key.
type Status struct {
	Active   bool
	Degraded bool
	Config   GroupConfig
}

// Status reports the current state for key without blocking on I/O.
func (m *Manager) Status(key Key) Status {
	w, ok := m.registry.Get(key)
	if !ok {
		return Status{}
	}
	return Status{Active: true, Degraded: w.Degraded(), Config: w.Config}
}

// pump drains one feed, rendering and delivering each event in emission
// order. It exits when the feed closes its channel; a terminal feed error
// marks the watch degraded but deliberately leaves it registered so
// status/health surfaces the failure instead of the watch silently
// vanishing.
func (m *Manager) pump(w *Watch) {
	defer close(w.done)

	for ev := range w.feed.Events() {
		payload, err := m.formatter.Render(ev, w.Config.RenderConfig())
		if err != nil {
			m.log.Error("render failed, event dropped",
				zap.String("watch", w.Key.String()),
				zap.String("tx", ev.TxID),
				zap.Error(err))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		if err := m.delivery.Deliver(ctx, w.Key.GroupID, payload); err != nil {
			m.log.Warn("delivery failed, continuing",
				zap.String("watch", w.Key.String()),
				zap.String("tx", ev.TxID),
				zap.Error(err))
		}
		cancel()
	}

	if err := w.feed.Err(); err != nil {
		w.degraded.Store(true)
		m.log.Error("feed terminated, watch degraded",
			zap.String("watch", w.Key.String()),
			zap.Error(err))
	}
}
