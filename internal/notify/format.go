package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/0xsamyy/buywatch/internal/chain"
	"github.com/0xsamyy/buywatch/internal/feed"
)

// ErrIncompleteConfig means the group config reached the formatter without
// a resolved token identity. The watch manager resolves identities before
// starting a watch, so hitting this is a call-ordering bug, not user error.
var ErrIncompleteConfig = errors.New("group config missing token identity")

// Config is the slice of a group's configuration the formatter needs.
type Config struct {
	Network     chain.Network
	TokenName   string
	TokenSymbol string
	EmojiGlyph  string
	ImageRef    string // empty means the default bot image
}

// Payload is a fully rendered notification, ready for a delivery sink.
// All fields are plain strings so rendering is deterministic and the
// payload can be delivered (or logged) without further computation.
type Payload struct {
	Title        string
	EmojiLine    string
	TokenName    string
	TokenSymbol  string
	TokenAmount  string
	NativeAmount string
	NativeSymbol string
	USDAmount    string
	Buyer        string
	TxURL        string
	ImageRef     string
}

// Formatter renders purchase events. It holds only immutable explorer
// configuration, so Render stays a pure function of its arguments.
type Formatter struct {
	explorers chain.ExplorerBases
}

// NewFormatter constructs a formatter using the given explorer bases.
func NewFormatter(explorers chain.ExplorerBases) *Formatter {
	return &Formatter{explorers: explorers}
}

// emojiRepetitions buckets a USD value into a repetition count.
// Thresholds are fixed and total-ordered; 10 is the cap.
func emojiRepetitions(usd float64) int {
	switch {
	case usd < 50:
		return 1
	case usd < 200:
		return 3
	case usd < 1000:
		return 5
	default:
		return 10
	}
}

// Render turns one purchase event into a deliverable payload.
// It performs no I/O and never mutates its inputs.
func (f *Formatter) Render(ev feed.PurchaseEvent, cfg Config) (Payload, error) {
	if cfg.TokenName == "" || cfg.TokenSymbol == "" {
		return Payload{}, ErrIncompleteConfig
	}

	glyph := cfg.EmojiGlyph
	if glyph == "" {
		glyph = "🟢"
	}

	return Payload{
		Title:        fmt.Sprintf("%s Buy!", cfg.TokenSymbol),
		EmojiLine:    strings.Repeat(glyph, emojiRepetitions(ev.USDAmount)),
		TokenName:    cfg.TokenName,
		TokenSymbol:  cfg.TokenSymbol,
		TokenAmount:  formatTokenAmount(ev.TokenAmount),
		NativeAmount: formatNativeAmount(ev.NativeAmount),
		NativeSymbol: cfg.Network.NativeSymbol(),
		USDAmount:    fmt.Sprintf("%.2f", ev.USDAmount),
		Buyer:        ev.Buyer,
		TxURL:        f.explorers.TxURL(cfg.Network, ev.TxID),
		ImageRef:     cfg.ImageRef,
	}, nil
}

// Text renders the payload as the HTML message body sent to the chat.
func (p Payload) Text() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>\n", p.Title))
	b.WriteString(p.EmojiLine)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("🪙 <b>%s (%s)</b>\n", p.TokenName, p.TokenSymbol))
	b.WriteString(fmt.Sprintf("📦 Got: <b>%s %s</b>\n", p.TokenAmount, p.TokenSymbol))
	b.WriteString(fmt.Sprintf("💰 Spent: <b>%s %s</b> ($%s)\n", p.NativeAmount, p.NativeSymbol, p.USDAmount))
	b.WriteString(fmt.Sprintf("👤 Buyer: <code>%s</code>\n", shortenBuyer(p.Buyer)))
	b.WriteString(fmt.Sprintf("\n<a href=\"%s\">View Transaction</a>", p.TxURL))
	return b.String()
}

// formatTokenAmount shortens large counts (1.1M, 2.2K) for readability.
func formatTokenAmount(amount float64) string {
	switch {
	case amount >= 1e9:
		return trimZeros(fmt.Sprintf("%.1f", amount/1e9)) + "B"
	case amount >= 1e6:
		return trimZeros(fmt.Sprintf("%.1f", amount/1e6)) + "M"
	case amount >= 1e3:
		return trimZeros(fmt.Sprintf("%.1f", amount/1e3)) + "K"
	default:
		return trimZeros(fmt.Sprintf("%.2f", amount))
	}
}

// formatNativeAmount keeps enough precision for small BNB/SOL amounts
// without trailing zero noise.
func formatNativeAmount(amount float64) string {
	return trimZeros(fmt.Sprintf("%.6f", amount))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func shortenBuyer(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
