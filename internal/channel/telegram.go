package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"parrotbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// Telegram implements domain.Channel for a Telegram bot using long polling.
type Telegram struct {
	token     string
	allowFrom []int64 // Allowed chat IDs (empty = allow all)
	parseMode string

	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	logger *slog.Logger
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // Chat IDs as strings
	ParseMode string   // empty = plain text
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:     cfg.Token,
		allowFrom: parseIDs(cfg.AllowFrom, cfg.Logger),
		parseMode: cfg.ParseMode,
		logger:    cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	bus.OnOutbound(t.Name(), func(msg domain.OutboundMessage) {
		if err := t.Send(ctx, msg); err != nil {
			t.logger.Error("telegram reply failed", "chat_id", msg.ChatID, "err", err)
		}
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op: polling stops when Start's context is cancelled, and
// StopReceivingUpdates panics if called twice.
func (t *Telegram) Stop() error {
	return nil
}

// Send delivers msg in chunks, quoting msg.ReplyTo with the first one.
func (t *Telegram) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if msg.Content == "" {
		return nil
	}
	if t.bot == nil {
		return errors.New("telegram channel not started")
	}
	replyTo := msg.ReplyTo
	for _, chunk := range splitMessage(msg.Content, telegramMaxMsgLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.sendChunk(msg.ChatID, chunk, replyTo); err != nil {
			return err
		}
		replyTo = 0 // only the first chunk quotes the command
	}
	return nil
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	msg, ok := inboundFromTelegram(update.Message)
	if !ok {
		return
	}

	if !isAllowed(t.allowFrom, msg.ChatID) {
		t.logger.Warn("telegram chat not in allow list",
			"chat_id", msg.ChatID,
			"user_id", msg.Sender.ID,
		)
		return
	}

	t.logger.Debug("telegram message received",
		"user_id", msg.Sender.ID,
		"chat_id", msg.ChatID,
		"text_len", len(msg.Content),
	)
	t.bus.Publish(msg)
}

// inboundFromTelegram converts a Telegram message. It reports false for
// messages without a sender, chat or text.
func inboundFromTelegram(m *tgbotapi.Message) (domain.InboundMessage, bool) {
	if m == nil || m.From == nil || m.Chat == nil {
		return domain.InboundMessage{}, false
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return domain.InboundMessage{}, false
	}

	sender := domain.NewUser(m.From.ID, m.From.UserName, m.From.FirstName, m.From.LastName)

	var chat domain.Entity = sender
	if !m.Chat.IsPrivate() {
		chat = domain.Group{ID: m.Chat.ID, Title: m.Chat.Title}
	}

	return domain.InboundMessage{
		Channel:   "telegram",
		ChatID:    m.Chat.ID,
		MessageID: int64(m.MessageID),
		Sender:    sender,
		Chat:      chat,
		Content:   text,
		Timestamp: time.Unix(int64(m.Date), 0),
	}, true
}

// sendChunk sends a single message chunk with retry and rate limit handling.
// Strategy: try the parse mode first, fall back to plain text, retry with backoff.
func (t *Telegram) sendChunk(chatID int64, text string, replyTo int64) error {
	const maxRetries = telegramMaxSendRetries
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyToMessageID = int(replyTo)
		msg.AllowSendingWithoutReply = true
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		_, err = t.bot.Send(msg)
		if err == nil {
			return nil
		}

		errStr := err.Error()

		// Handle Telegram rate limiting (HTTP 429).
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		if attempt == 0 && msg.ParseMode != "" &&
			strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram parse error, retrying as plain text",
				"err", err, "parseMode", t.parseMode,
			)
			msg.ParseMode = ""
			if _, err2 := t.bot.Send(msg); err2 == nil {
				return nil
			}
		}

		if attempt < maxRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", maxRetries+1, err)
}

// parseIDs parses decimal ids, logging and skipping malformed entries.
func parseIDs(raw []string, logger *slog.Logger) []int64 {
	var ids []int64
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			logger.Warn("ignoring invalid id in allow list", "value", s)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func isAllowed(allowFrom []int64, chatID int64) bool {
	if len(allowFrom) == 0 {
		return true // Empty list = allow all
	}
	for _, id := range allowFrom {
		if id == chatID {
			return true
		}
	}
	return false
}
