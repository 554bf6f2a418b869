package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// purchaseNotification is the shape of a `purchaseSubscribe` push message.
type purchaseNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value PurchaseEvent `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// maxDialFailures is the number of consecutive failed reconnect attempts
// after which a feed gives up and reports a terminal error. A single
// dropped connection never kills the feed; only a persistently
// unreachable upstream does.
const maxDialFailures = 8

// WSOpener opens push feeds over a single WebSocket endpoint.
type WSOpener struct {
	wss string
	log *zap.Logger
}

// NewWSOpener constructs an Opener bound to the given wss:// endpoint.
func NewWSOpener(wss string, log *zap.Logger) *WSOpener {
	return &WSOpener{wss: wss, log: log.Named("feed")}
}

// Open dials the endpoint and subscribes for purchases of p. The initial
// dial and subscribe happen synchronously so the caller learns right away
// whether the upstream is reachable; reconnects after that are internal.
func (o *WSOpener) Open(ctx context.Context, p Params) (Feed, error) {
	f := &wsFeed{
		wss:    o.wss,
		params: p,
		log:    o.log.With(zap.String("network", string(p.Network)), zap.String("token", shortAddr(p.TokenAddress))),
		events: make(chan PurchaseEvent, 16),
		stopCh: make(chan struct{}),
		dedupe: make(map[string]time.Time),
	}

	conn, err := f.dialAndSubscribe(ctx)
	if err != nil {
		return nil, err
	}

	go f.run(ctx, conn)
	go f.sweepDedupe(ctx)
	return f, nil
}

// wsFeed maintains one purchase subscription. It reconnects with backoff
// until Stop is called or the dial failure budget is exhausted.
type wsFeed struct {
	wss    string
	params Params
	log    *zap.Logger

	events chan PurchaseEvent

	stopOnce sync.Once
	stopCh   chan struct{}

	mu  sync.Mutex
	err error

	dedupeMu sync.Mutex
	dedupe   map[string]time.Time
}

func (f *wsFeed) Events() <-chan PurchaseEvent { return f.events }

func (f *wsFeed) Stop() {
	f.stopOnce.Do(func() { close(f.stopCh) })
}

func (f *wsFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *wsFeed) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *wsFeed) stopped() bool {
	select {
	case <-f.stopCh:
		return true
	default:
		return false
	}
}

func (f *wsFeed) dialAndSubscribe(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wss, http.Header{})
	if err != nil {
		return nil, err
	}

	subMsg := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "purchaseSubscribe",
		"params": []any{
			map[string]any{
				"network": string(f.params.Network),
				"token":   f.params.TokenAddress,
				"minUsd":  f.params.MinUSD,
			},
		},
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// run owns the connection lifecycle. conn is the already-subscribed
// connection from Open; after it drops, run redials until Stop or the
// failure budget runs out. Closing f.events is the completion signal:
// nothing is ever sent after it closes.
func (f *wsFeed) run(ctx context.Context, conn *websocket.Conn) {
	defer close(f.events)

	bo := newBackoff(1*time.Second, 30*time.Second, 2.0, 0.2)
	dialFailures := 0

	for {
		if conn == nil {
			if f.stopped() || ctx.Err() != nil {
				return
			}
			var err error
			conn, err = f.dialAndSubscribe(ctx)
			if err != nil {
				dialFailures++
				if dialFailures >= maxDialFailures {
					f.setErr(err)
					f.log.Error("feed giving up after repeated dial failures", zap.Int("attempts", dialFailures), zap.Error(err))
					return
				}
				wait := bo.Next()
				f.log.Warn("feed dial error; will retry", zap.Duration("retry_in", wait), zap.Error(err))
				select {
				case <-f.stopCh:
					return
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				continue
			}
		}

		dialFailures = 0
		bo.Reset()
		f.readLoop(ctx, conn)
		conn = nil

		if f.stopped() || ctx.Err() != nil {
			return
		}
	}
}

// readLoop reads from one connection until it drops or the feed stops.
func (f *wsFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()

	go func() {
		select {
		case <-f.stopCh:
		case <-connCtx.Done():
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stopping"), time.Now().Add(2*time.Second))
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-connCtx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !f.stopped() {
				f.log.Warn("feed read error", zap.Error(err))
			}
			return
		}

		var notif purchaseNotification
		if err := json.Unmarshal(msg, &notif); err != nil {
			continue
		}
		if notif.Method != "purchaseNotification" || notif.Params.Result.Value.TxID == "" {
			continue
		}

		ev := notif.Params.Result.Value
		if f.isDuplicate(ev.TxID) {
			continue
		}

		select {
		case f.events <- ev:
		case <-f.stopCh:
			return
		case <-connCtx.Done():
			return
		}
	}
}

// isDuplicate suppresses re-detections of the same purchase within a
// short window. Entries are swept by sweepDedupe.
func (f *wsFeed) isDuplicate(txID string) bool {
	f.dedupeMu.Lock()
	defer f.dedupeMu.Unlock()

	if ts, found := f.dedupe[txID]; found {
		if time.Since(ts) < 30*time.Second {
			return true
		}
	}
	f.dedupe[txID] = time.Now()
	return false
}

func (f *wsFeed) sweepDedupe(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.dedupeMu.Lock()
			for tx, ts := range f.dedupe {
				if time.Since(ts) > 1*time.Minute {
					delete(f.dedupe, tx)
				}
			}
			f.dedupeMu.Unlock()
		}
	}
}

func shortAddr(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
