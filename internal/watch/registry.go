package watch

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/0xsamyy/buywatch/internal/feed"
)

// Watch is one live monitoring job. The feed handle is exclusively owned
// here: nobody else may stop or read the feed once the watch is registered.
type Watch struct {
	Key    Key
	Config GroupConfig

	feed feed.Feed

	// done is closed when the event pump has drained the feed. Stopping
	// a watch waits on it so no notification can trail a stop call.
	done chan struct{}

	degraded atomic.Bool
}

// Degraded reports whether the watch's feed terminated with an error.
// A degraded watch stays registered (visible in status/health) but no
// longer produces notifications.
func (w *Watch) Degraded() bool { return w.degraded.Load() }

// Registry is the single source of truth mapping Key -> live Watch.
// All mutation goes through Register/Unregister; it is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	watches map[Key]*Watch
}

// NewRegistry constructs an empty registry. Construct one per process
// (or per test) and hand it to the manager; there is no ambient global.
func NewRegistry() *Registry {
	return &Registry{watches: make(map[Key]*Watch)}
}

// Register inserts w. Fails with ErrAlreadyWatching if a live entry
// already holds the key.
func (r *Registry) Register(w *Watch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.watches[w.Key]; exists {
		return ErrAlreadyWatching
	}
	r.watches[w.Key] = w
	return nil
}

// Unregister removes the entry for key. Idempotent: removing an absent
// key is a no-op, so tearing down an already-stopped watch is safe.
func (r *Registry) Unregister(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watches, key)
}

// Get returns the current watch for key, if any.
func (r *Registry) Get(key Key) (*Watch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.watches[key]
	return w, ok
}

// ListByGroup returns the group's watches sorted by token address.
func (r *Registry) ListByGroup(groupID int64) []*Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Watch
	for key, w := range r.watches {
		if key.GroupID == groupID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.TokenAddress < out[j].Key.TokenAddress })
	return out
}

// List returns all watches, sorted by key for deterministic output.
func (r *Registry) List() []*Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Watch, 0, len(r.watches))
	for _, w := range r.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.GroupID != out[j].Key.GroupID {
			return out[i].Key.GroupID < out[j].Key.GroupID
		}
		return out[i].Key.TokenAddress < out[j].Key.TokenAddress
	})
	return out
}

// Stats reports totals for the /health command.
func (r *Registry) Stats() (tracked int, degraded int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tracked = len(r.watches)
	for _, w := range r.watches {
		if w.Degraded() {
			degraded++
		}
	}
	return
}
