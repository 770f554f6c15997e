// Package alert pushes operator notifications when generation degrades.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop drops every alert.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to one chat. Messages closer together than the
// cooldown are dropped so a provider outage produces one alert, not thousands.
type Telegram struct {
	api      sender
	chatID   int64
	cooldown time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewTelegram(token string, chatID int64, cooldown time.Duration, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegram(api, chatID, cooldown, log), nil
}

func newTelegram(api sender, chatID int64, cooldown time.Duration, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{api: api, chatID: chatID, cooldown: cooldown, log: log, now: time.Now}
}

func (t *Telegram) Notify(_ context.Context, text string) error {
	t.mu.Lock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.cooldown {
		t.mu.Unlock()
		t.log.Debug("alert suppressed", zap.Duration("cooldown", t.cooldown))
		return nil
	}
	t.last = now
	t.mu.Unlock()

	msg := tgbotapi.NewMessage(t.chatID, truncate(text, 4000))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
