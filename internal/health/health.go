package health

import (
	"context"
	"time"

	"github.com/0xsamyy/buywatch/internal/watch"
)

// ConfigCounter is the minimal interface we need from the store.
type ConfigCounter interface {
	CountConfigs(ctx context.Context) (int, error)
}

// Health exposes a read-only snapshot of service state for the /health command.
type Health struct {
	reg *watch.Registry
	st  ConfigCounter
}

// New returns a Health aggregator bound to the watch registry and store.
func New(reg *watch.Registry, st ConfigCounter) *Health {
	return &Health{reg: reg, st: st}
}

// Report is the struct returned to the caller (Telegram handler) for formatting.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	// From watch.Registry.Stats()
	Tracked  int `json:"tracked_in_memory"`
	Degraded int `json:"degraded_watches"`

	// From persistent store
	Persisted int `json:"configs_in_store"`
}

// Snapshot gathers a point-in-time report. It does not block for long operations.
func (h *Health) Snapshot(ctx context.Context) Report {
	tracked, degraded := h.reg.Stats()

	var persisted int
	if h.st != nil {
		if n, err := h.st.CountConfigs(ctx); err == nil {
			persisted = n
		}
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		Tracked:     tracked,
		Degraded:    degraded,
		Persisted:   persisted,
	}
}
