package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// StaffChannel pushes short notices to the society staff Telegram chat,
// rate limited so a burst of events cannot trip the bot API.
type StaffChannel struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewStaffChannel connects the bot. ratePerSecond and burst default to 1/5
// when unset.
func NewStaffChannel(token string, chatID int64, ratePerSecond float64, burst int, logger *zerolog.Logger) (*StaffChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram staff channel connected")
	return &StaffChannel{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:  logger,
	}, nil
}

// Send posts one message, waiting on the limiter first.
func (c *StaffChannel) Send(ctx context.Context, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(c.chatID, text)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
