package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/0xsamyy/buywatch/internal/chain"
	"github.com/0xsamyy/buywatch/internal/health"
	"github.com/0xsamyy/buywatch/internal/store"
	"github.com/0xsamyy/buywatch/internal/watch"
)

// Handler coordinates Telegram <-> watch manager/store/health.
type Handler struct {
	bot        *tg.Bot
	adminID    int64
	mgr        *watch.Manager
	st         *store.Bolt
	hlth       *health.Health
	defaultMin float64
	killFn     func()
	log        *zap.Logger
}

// New constructs the Telegram Handler.
func New(bot *tg.Bot, mgr *watch.Manager, st *store.Bolt, hlth *health.Health, adminID int64, defaultMin float64, killFn func(), log *zap.Logger) *Handler {
	return &Handler{
		bot:        bot,
		adminID:    adminID,
		mgr:        mgr,
		st:         st,
		hlth:       hlth,
		defaultMin: defaultMin,
		killFn:     killFn,
		log:        log.Named("telegram"),
	}
}

// Run starts long-polling and handles updates until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	h.bot.RegisterHandler(tg.HandlerTypeMessageText, "", tg.MatchTypePrefix, func(c context.Context, b *tg.Bot, u *models.Update) {
		if u.Message == nil {
			return
		}
		h.handleCommand(c, u.Message)
	})
	h.bot.Start(ctx)
}

func (h *Handler) handleCommand(ctx context.Context, m *models.Message) {
	raw := strings.TrimSpace(m.Text)
	lower := strings.ToLower(raw)
	if idx := strings.IndexRune(lower, '@'); idx != -1 {
		lower = lower[:idx]
		raw = raw[:idx]
	}
	groupID := m.Chat.ID

	switch {
	case lower == "/help", lower == "/start":
		h.replyHelp(ctx, groupID)

	case strings.HasPrefix(lower, "/setup "):
		args := strings.Fields(raw[len("/setup "):])
		if len(args) < 3 || len(args) > 4 {
			h.sendHTML(ctx, groupID, "usage: <code>/setup &lt;bnb|solana&gt; &lt;token_address&gt; &lt;emoji&gt; [image_url]</code>")
			return
		}
		h.handleSetup(ctx, groupID, args)

	case strings.HasPrefix(lower, "/stop "):
		addr := strings.TrimSpace(raw[len("/stop"):])
		if addr == "" {
			h.sendHTML(ctx, groupID, "usage: <code>/stop &lt;token_address&gt;</code>")
			return
		}
		key := watch.Key{GroupID: groupID, TokenAddress: addr}
		h.mgr.Stop(key)
		h.deactivateConfig(ctx, key)
		h.sendHTML(ctx, groupID, "stopped tracking <b>"+escapeHTML(addr)+"</b>")

	case lower == "/stopall":
		h.mgr.StopAll(groupID)
		for key := range h.groupConfigs(ctx, groupID) {
			h.deactivateConfig(ctx, key)
		}
		h.sendHTML(ctx, groupID, "🛑 all tracking stopped for this group")

	case strings.HasPrefix(lower, "/status "):
		addr := strings.TrimSpace(raw[len("/status"):])
		if addr == "" {
			h.sendHTML(ctx, groupID, "usage: <code>/status &lt;token_address&gt;</code>")
			return
		}
		h.replyStatus(ctx, groupID, addr)

	case lower == "/list":
		h.replyList(ctx, groupID)

	case lower == "/health":
		if groupID != h.adminID {
			return
		}
		rep := h.hlth.Snapshot(ctx)
		msg := fmt.Sprintf(
			"📊 <b>Health Report</b>\n"+
				"- Watches (memory): <code>%d</code>\n"+
				"- Degraded: <code>%d</code>\n"+
				"- Configs (store): <code>%d</code>\n"+
				"- Time: <code>%s</code>",
			rep.Tracked, rep.Degraded, rep.Persisted, rep.GeneratedAt.Format(time.RFC3339),
		)
		h.sendHTML(ctx, groupID, msg)

	case lower == "/kill":
		if groupID != h.adminID {
			return
		}
		h.sendHTML(ctx, groupID, "🛑 shutting down...")
		go func() {
			time.Sleep(200 * time.Millisecond)
			if h.killFn != nil {
				h.killFn()
			} else {
				h.log.Warn("killFn not set")
			}
		}()

	default:
		if strings.HasPrefix(lower, "/") {
			h.sendHTML(ctx, groupID, "unknown command. try <code>/help</code>")
		}
	}
}

// handleSetup configures (or reconfigures) the group's tracking. A fresh
// /setup replaces whatever the group was tracking before.
func (h *Handler) handleSetup(ctx context.Context, groupID int64, args []string) {
	network, err := chain.Parse(args[0])
	if err != nil {
		h.sendHTML(ctx, groupID, fmt.Sprintf("unknown network <code>%s</code> (use bnb or solana)", escapeHTML(args[0])))
		return
	}
	addr := args[1]
	emoji := args[2]
	var imageRef string
	if len(args) == 4 {
		imageRef = args[3]
	}

	// Reconfiguration sweeps the group's previous watches first.
	h.mgr.StopAll(groupID)
	for key := range h.groupConfigs(ctx, groupID) {
		if err := h.st.DeleteConfig(ctx, key); err != nil {
			h.log.Warn("delete old config failed", zap.String("key", key.String()), zap.Error(err))
		}
	}

	key := watch.Key{GroupID: groupID, TokenAddress: addr}
	now := time.Now().UTC()
	cfg := watch.GroupConfig{
		Network:      network,
		TokenAddress: addr,
		EmojiGlyph:   emoji,
		ImageRef:     imageRef,
		MinUSD:       h.defaultMin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	h.sendHTML(ctx, groupID, fmt.Sprintf("⏳ setting up tracking for <code>%s</code> on %s...", escapeHTML(shorten(addr)), network.NativeSymbol()))

	id, err := h.mgr.Start(ctx, key, cfg)
	if err != nil {
		h.sendHTML(ctx, groupID, startErrorMessage(err))
		return
	}

	cfg.TokenName = id.Name
	cfg.TokenSymbol = id.Symbol
	cfg.Active = true
	if err := h.st.SaveConfig(ctx, key, cfg); err != nil {
		h.log.Error("persist config failed", zap.String("key", key.String()), zap.Error(err))
	}

	h.sendHTML(ctx, groupID, fmt.Sprintf(
		"✅ now tracking <b>%s (%s)</b>\nbuys land here with %s tiers. <code>/stop %s</code> to end.",
		escapeHTML(id.Name), escapeHTML(id.Symbol), emoji, escapeHTML(addr),
	))
}

// startErrorMessage maps the manager's error taxonomy to user-facing text.
func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, watch.ErrInvalidToken):
		return "❌ that doesn't look like a valid token address for this network."
	case errors.Is(err, watch.ErrResolutionFailed):
		return "⚠️ couldn't look up the token right now. Try again in a minute."
	case errors.Is(err, watch.ErrFeedUnavailable):
		return "⚠️ the purchase feed is unreachable. Nothing was started; try again."
	default:
		return fmt.Sprintf("setup failed: <code>%s</code>", escapeHTML(err.Error()))
	}
}

func (h *Handler) replyStatus(ctx context.Context, groupID int64, addr string) {
	key := watch.Key{GroupID: groupID, TokenAddress: addr}
	st := h.mgr.Status(key)
	switch {
	case !st.Active:
		h.sendHTML(ctx, groupID, "not tracking <code>"+escapeHTML(shorten(addr))+"</code>")
	case st.Degraded:
		h.sendHTML(ctx, groupID, fmt.Sprintf("⚠️ <b>%s (%s)</b> is tracked but the feed is down. <code>/setup</code> again to restart.", escapeHTML(st.Config.TokenName), escapeHTML(st.Config.TokenSymbol)))
	default:
		h.sendHTML(ctx, groupID, fmt.Sprintf("✅ tracking <b>%s (%s)</b> on %s %s", escapeHTML(st.Config.TokenName), escapeHTML(st.Config.TokenSymbol), st.Config.Network.NativeSymbol(), st.Config.EmojiGlyph))
	}
}

func (h *Handler) replyList(ctx context.Context, groupID int64) {
	configs := h.groupConfigs(ctx, groupID)
	if len(configs) == 0 {
		h.sendHTML(ctx, groupID, "<b>Nothing configured for this group.</b>")
		return
	}
	var b strings.Builder
	b.WriteString("📋 <b>Configured tokens:</b>\n")
	for key, cfg := range configs {
		state := "inactive"
		if st := h.mgr.Status(key); st.Active {
			state = "active"
			if st.Degraded {
				state = "degraded"
			}
		}
		b.WriteString(fmt.Sprintf("- <b>%s</b> <code>%s</code> (%s, %s)\n",
			escapeHTML(cfg.TokenSymbol), escapeHTML(shorten(key.TokenAddress)), cfg.Network.NativeSymbol(), state))
	}
	h.sendHTML(ctx, groupID, b.String())
}

// groupConfigs loads the persisted configs belonging to one group.
func (h *Handler) groupConfigs(ctx context.Context, groupID int64) map[watch.Key]watch.GroupConfig {
	all, err := h.st.ListConfigs(ctx)
	if err != nil {
		h.log.Warn("list configs failed", zap.Error(err))
		return nil
	}
	out := make(map[watch.Key]watch.GroupConfig)
	for key, cfg := range all {
		if key.GroupID == groupID {
			out[key] = cfg
		}
	}
	return out
}

// deactivateConfig persists active=false so a restart won't resurrect
// a watch the group explicitly stopped.
func (h *Handler) deactivateConfig(ctx context.Context, key watch.Key) {
	cfg, found, err := h.st.GetConfig(ctx, key)
	if err != nil || !found {
		return
	}
	cfg.Active = false
	cfg.UpdatedAt = time.Now().UTC()
	if err := h.st.SaveConfig(ctx, key, cfg); err != nil {
		h.log.Warn("deactivate config failed", zap.String("key", key.String()), zap.Error(err))
	}
}

func (h *Handler) replyHelp(ctx context.Context, chatID int64) {
	help := strings.TrimSpace(`
🛠 <b>buywatch</b>

<b>Commands:</b>
- <code>/setup &lt;bnb|solana&gt; &lt;address&gt; &lt;emoji&gt; [image_url]</code> - Track token buys here
- <code>/stop &lt;address&gt;</code> - Stop tracking a token
- <code>/stopall</code> - Stop all tracking for this group
- <code>/status &lt;address&gt;</code> - Show tracking state
- <code>/list</code> - List configured tokens
- <code>/help</code> - This message

<b>Admin:</b>
- <code>/health</code> - Show service health
- <code>/kill</code> - Shutdown the service
`)
	h.sendHTML(ctx, chatID, help)
}

func (h *Handler) sendHTML(ctx context.Context, chatID int64, html string) {
	disable := true
	_, err := h.bot.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:    chatID,
		Text:      html,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disable,
		},
	})
	if err != nil {
		h.log.Warn("send error", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}

func shorten(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
