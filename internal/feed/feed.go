package feed

import (
	"context"

	"github.com/0xsamyy/buywatch/internal/chain"
)

// PurchaseEvent is a single observed buy of the watched token.
// It is an immutable value; TxID is used for links and logging only.
type PurchaseEvent struct {
	TxID         string  `json:"txId"`
	TokenAmount  float64 `json:"tokenAmount"`
	NativeAmount float64 `json:"nativeAmount"`
	USDAmount    float64 `json:"usdAmount"`
	Buyer        string  `json:"buyer"`
}

// Params selects what a feed observes.
type Params struct {
	Network      chain.Network
	TokenAddress string
	MinUSD       float64
}

// Feed is one live purchase stream. Implementations must guarantee that
// once the Events channel is closed, no further events will ever be
// emitted for this handle; closing the channel is the completion signal
// the watch manager relies on before releasing a watch.
type Feed interface {
	// Events yields purchases in emission order. Closed after Stop,
	// or after a fatal internal failure (in which case Err is non-nil).
	Events() <-chan PurchaseEvent

	// Stop releases all underlying resources. Idempotent.
	Stop()

	// Err reports the terminal error, if any, once Events is closed.
	// A clean Stop yields nil. Transient upstream errors are retried
	// internally and never surface here.
	Err() error
}

// Opener establishes feeds. Open must fail fast if the upstream source
// cannot be reached, and must not leave any resources behind on failure.
type Opener interface {
	Open(ctx context.Context, p Params) (Feed, error)
}
