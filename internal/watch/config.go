package watch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/0xsamyy/buywatch/internal/chain"
	"github.com/0xsamyy/buywatch/internal/notify"
)

// Key identifies one monitoring job: a token watched on behalf of a group.
// At most one live watch exists per Key at any time.
type Key struct {
	GroupID      int64
	TokenAddress string
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.GroupID, k.TokenAddress)
}

// ParseKey is the inverse of Key.String, used by the persistence layer.
func ParseKey(s string) (Key, error) {
	group, addr, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, fmt.Errorf("malformed watch key %q", s)
	}
	id, err := strconv.ParseInt(group, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("malformed watch key %q: %w", s, err)
	}
	return Key{GroupID: id, TokenAddress: addr}, nil
}

// GroupConfig is an immutable snapshot of a group's tracking setup.
// The manager reads it at start time; a reconfiguration means a new
// snapshot and a new watch, never in-place mutation.
type GroupConfig struct {
	Network      chain.Network `json:"network"`
	TokenAddress string        `json:"token_address"`
	TokenName    string        `json:"token_name,omitempty"`
	TokenSymbol  string        `json:"token_symbol,omitempty"`
	EmojiGlyph   string        `json:"emoji_glyph"`
	ImageRef     string        `json:"image_ref,omitempty"`
	MinUSD       float64       `json:"min_usd,omitempty"`
	Active       bool          `json:"active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Resolved reports whether the token identity has been filled in.
func (c GroupConfig) Resolved() bool {
	return c.TokenName != "" && c.TokenSymbol != ""
}

// RenderConfig projects the snapshot into what the formatter needs.
func (c GroupConfig) RenderConfig() notify.Config {
	return notify.Config{
		Network:     c.Network,
		TokenName:   c.TokenName,
		TokenSymbol: c.TokenSymbol,
		EmojiGlyph:  c.EmojiGlyph,
		ImageRef:    c.ImageRef,
	}
}
