package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramCooldown(t *testing.T) {
	api := &fakeSender{}
	tg := newTelegram(api, 42, time.Minute, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tg.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := tg.Notify(ctx, "provider down"); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}
	if len(api.sent) != 1 {
		t.Fatalf("sent %d alerts, want 1 inside cooldown", len(api.sent))
	}
	if api.sent[0].ChatID != 42 || api.sent[0].Text != "provider down" {
		t.Errorf("message = %+v", api.sent[0])
	}

	now = now.Add(2 * time.Minute)
	if err := tg.Notify(ctx, "still down"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(api.sent) != 2 {
		t.Errorf("sent %d alerts after cooldown, want 2", len(api.sent))
	}
}

func TestTelegramSendError(t *testing.T) {
	tg := newTelegram(&fakeSender{err: errors.New("blocked")}, 1, 0, nil)
	if err := tg.Notify(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("Notify() error = %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "hé…" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("ok", 5); got != "ok" {
		t.Errorf("truncate() = %q", got)
	}
}
