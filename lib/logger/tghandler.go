package logger

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// TelegramHandler is a slog.Handler that mirrors records at or above
// minLevel to a Telegram admin chat, on top of a wrapped handler that
// does the normal output. Delivery failures are swallowed: alerting
// must never break the pipeline that is being alerted about.
type TelegramHandler struct {
	handler  slog.Handler
	bot      *tgbotapi.Bot
	chatID   int64
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

func NewTelegramHandler(handler slog.Handler, token string, chatID int64, minLevel slog.Level) (*TelegramHandler, error) {
	bot, err := tgbotapi.NewBot(token, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramHandler{
		handler:  handler,
		bot:      bot,
		chatID:   chatID,
		minLevel: minLevel,
	}, nil
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.handler.Handle(ctx, record); err != nil {
		return err
	}
	if record.Level < h.minLevel {
		return nil
	}

	msg := fmt.Sprintf("%s %s", record.Level.String(), record.Message)
	if h.group != "" {
		msg = fmt.Sprintf("%s %s.%s", record.Level.String(), h.group, record.Message)
	}
	for _, attr := range h.attrs {
		msg += fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg += fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)
		return true
	})

	_, _ = h.bot.SendMessage(h.chatID, msg, nil)
	return nil
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		bot:      h.bot,
		chatID:   h.chatID,
		minLevel: h.minLevel,
		attrs:    merged,
		group:    h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		bot:      h.bot,
		chatID:   h.chatID,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}
