// Package notify delivers short operator messages.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramConfig struct {
	Token  string
	ChatID int64
	// Endpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	Endpoint string
	Timeout  time.Duration
}

// Telegram sends messages to one chat. The bot is created on first use so a
// Telegram outage at startup does not block the process.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (t *Telegram) api() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.cfg.Token, t.cfg.Endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("notify: telegram bot: %w", err)
	}
	t.bot = bot
	return bot, nil
}

// Send posts text to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := t.api()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.cfg.ChatID, text)
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	return nil
}
