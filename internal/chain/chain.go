package chain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
)

// Network identifies one of the supported chains.
type Network string

const (
	BNB    Network = "bnb"
	Solana Network = "solana"
)

// ErrInvalidAddress is returned when a token address fails local validation
// for its network. This never involves network I/O.
var ErrInvalidAddress = errors.New("invalid token address")

// ErrUnknownNetwork is returned by Parse for unrecognized network tags.
var ErrUnknownNetwork = errors.New("unknown network")

var bnbAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Parse normalizes a user-supplied network tag. Common aliases are accepted
// so chat commands stay forgiving ("bsc" for BNB, "sol" for Solana).
func Parse(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bnb", "bsc", "binance":
		return BNB, nil
	case "solana", "sol":
		return Solana, nil
	default:
		return "", fmt.Errorf("%w: %q (expected bnb|solana)", ErrUnknownNetwork, s)
	}
}

// Valid reports whether n is one of the supported networks.
func (n Network) Valid() bool {
	return n == BNB || n == Solana
}

// NativeSymbol returns the ticker of the network's native currency,
// used when rendering the native-amount line of a notification.
func (n Network) NativeSymbol() string {
	switch n {
	case BNB:
		return "BNB"
	case Solana:
		return "SOL"
	default:
		return "?"
	}
}

// ValidateAddress checks that addr is a plausible token address for n.
// BNB addresses are 20-byte hex with 0x prefix; Solana addresses are
// 32-byte base58.
func ValidateAddress(n Network, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	switch n {
	case BNB:
		if !bnbAddressRegex.MatchString(addr) {
			return fmt.Errorf("%w: %q is not a 0x-prefixed 40-hex-char address", ErrInvalidAddress, addr)
		}
		return nil
	case Solana:
		raw, err := base58.Decode(addr)
		if err != nil {
			return fmt.Errorf("%w: %q is not valid base58", ErrInvalidAddress, addr)
		}
		if len(raw) != 32 {
			return fmt.Errorf("%w: %q decodes to %d bytes, want 32", ErrInvalidAddress, addr, len(raw))
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, n)
	}
}

// ExplorerBases maps each network to the base URL used to build
// transaction links. A tx URL is the base concatenated with the raw tx id.
type ExplorerBases map[Network]string

// DefaultExplorers returns the public explorer bases.
func DefaultExplorers() ExplorerBases {
	return ExplorerBases{
		BNB:    "https://bscscan.com/tx/",
		Solana: "https://solscan.io/tx/",
	}
}

// TxURL builds the explorer link for a transaction id.
func (e ExplorerBases) TxURL(n Network, txID string) string {
	return e[n] + txID
}
