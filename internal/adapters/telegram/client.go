package telegram

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// maxMessageLen is the Bot API limit for one text message
const maxMessageLen = 4096

// Bot is an outbound-only Telegram client for alert delivery. All alerts
// go to one chat, so it is throttled to Telegram's per-chat limit.
type Bot struct {
	api     *tgbotapi.BotAPI
	log     *logger.Logger
	limiter *rate.Limiter
	retries int
}

// Config contains Telegram bot configuration
type Config struct {
	Token string
	Debug bool
	// Endpoint overrides the Bot API endpoint format (tests only)
	Endpoint    string
	HTTPTimeout time.Duration
	// PerMinute caps messages to the alert chat (default 20, Telegram's
	// group limit)
	PerMinute int
	// MaxRetries is how often a 429 is retried after its retry_after
	MaxRetries int
}

// NewBot creates the bot and verifies the token with getMe
func NewBot(cfg Config, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 20
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return nil, errors.Join(errors.ErrUnavailable, errors.Wrap(err, "telegram getMe"))
	}
	api.Debug = cfg.Debug

	log = log.With("component", "telegram_bot", "bot", api.Self.UserName)
	log.Info("Telegram bot authorized")

	return &Bot{
		api:     api,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), 3),
		retries: cfg.MaxRetries,
	}, nil
}

// SendMessageWithContext sends Markdown text to chatID. Text longer than
// one message is split on line boundaries and sent in order.
func (b *Bot) SendMessageWithContext(ctx context.Context, chatID int64, text string) error {
	for i, part := range splitMessage(text, maxMessageLen) {
		if err := b.sendPart(ctx, chatID, part); err != nil {
			return errors.Wrapf(err, "telegram message part %d", i+1)
		}
	}
	return nil
}

func (b *Bot) sendPart(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	for attempt := 0; ; attempt++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		_, err := b.api.Send(msg)
		metrics.RecordAdapterCall("telegram", time.Since(start), err)
		if err == nil {
			b.log.Debugw("Message sent", "chat_id", chatID, "length", len(text))
			return nil
		}

		wait, retryable := retryAfter(err)
		if !retryable || attempt >= b.retries {
			b.log.Errorw("Failed to send message", "chat_id", chatID, "attempt", attempt+1, "error", err)
			return err
		}

		b.log.Warnw("Telegram throttled, retrying", "chat_id", chatID, "retry_after", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// retryAfter reports whether err is a Bot API 429 and how long to back off
func retryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusTooManyRequests {
		return 0, false
	}
	wait := time.Duration(apiErr.RetryAfter) * time.Second
	if wait <= 0 {
		wait = time.Second
	}
	return wait, true
}

// splitMessage cuts text into chunks of at most limit bytes, preferring
// newline boundaries. A single line longer than limit is hard-cut.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
