package telegram

import (
	"context"
	"fmt"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0xsamyy/buywatch/internal/notify"
)

// Sink delivers rendered notifications to Telegram group chats. A shared
// limiter keeps the bot inside Telegram's send budget; a burst of feed
// events queues here instead of triggering 429s.
type Sink struct {
	bot     *tg.Bot
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewSink wraps a bot as a watch.Delivery implementation.
func NewSink(bot *tg.Bot, log *zap.Logger) *Sink {
	return &Sink{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(1), 5), // 1 msg/s, small burst
		log:     log.Named("sink"),
	}
}

// Deliver sends the payload to the group. With an image ref the payload
// goes out as a photo caption, otherwise as an HTML message.
func (s *Sink) Deliver(ctx context.Context, groupID int64, p notify.Payload) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	disable := true
	var err error
	if p.ImageRef != "" {
		_, err = s.bot.SendPhoto(ctx, &tg.SendPhotoParams{
			ChatID:    groupID,
			Photo:     &models.InputFileString{Data: p.ImageRef},
			Caption:   p.Text(),
			ParseMode: models.ParseModeHTML,
		})
	} else {
		_, err = s.bot.SendMessage(ctx, &tg.SendMessageParams{
			ChatID:    groupID,
			Text:      p.Text(),
			ParseMode: models.ParseModeHTML,
			LinkPreviewOptions: &models.LinkPreviewOptions{
				IsDisabled: &disable,
			},
		})
	}
	if err != nil {
		return fmt.Errorf("telegram send to %d: %w", groupID, err)
	}
	return nil
}
