// Package parrot ties the message archive to the Markov generator: it records
// chat messages of tracked users and generates messages in their style.
package parrot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"parrotbot/internal/domain"
	"parrotbot/internal/markov"
	"parrotbot/internal/metrics"

	"github.com/google/uuid"
)

// Service records messages and generates parrot replies.
type Service struct {
	archive      Archive
	logger       *slog.Logger
	source       markov.Source
	maxTokens    int
	historyLimit int
}

type Config struct {
	Archive Archive
	Logger  *slog.Logger
	// Source overrides the randomness used for generation. It must be safe
	// for concurrent use when the Service is shared. Default: math/rand/v2.
	Source       markov.Source
	MaxTokens    int // hang guard per generation (default markov.DefaultMaxTokens)
	HistoryLimit int // most recent messages fed into a chain; 0 = all
}

func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		archive:      cfg.Archive,
		logger:       cfg.Logger,
		source:       cfg.Source,
		maxTokens:    cfg.MaxTokens,
		historyLimit: cfg.HistoryLimit,
	}
}

// Observe upserts the sender and the conversation of msg.
func (s *Service) Observe(ctx context.Context, msg domain.InboundMessage) error {
	if err := s.archive.UpsertEntity(ctx, msg.Sender); err != nil {
		return fmt.Errorf("upsert sender %d: %w", msg.Sender.ID, err)
	}
	if msg.Chat != nil && msg.Chat.EntityID() != msg.Sender.ID {
		if err := s.archive.UpsertEntity(ctx, msg.Chat); err != nil {
			return fmt.Errorf("upsert chat %d: %w", msg.Chat.EntityID(), err)
		}
	}
	return nil
}

// Record observes msg and archives its text when the sender is tracked. It
// reports whether the message was archived.
func (s *Service) Record(ctx context.Context, msg domain.InboundMessage) (bool, error) {
	if err := s.Observe(ctx, msg); err != nil {
		return false, err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return false, nil
	}

	tracked, err := s.archive.IsTracked(ctx, msg.Sender.ID)
	if err != nil {
		return false, fmt.Errorf("tracking status of %d: %w", msg.Sender.ID, err)
	}
	if !tracked {
		metrics.MessagesSkipped.Inc()
		return false, nil
	}

	sentAt := msg.Timestamp
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	id, err := s.archive.AddMessage(ctx, domain.ArchivedMessage{
		SenderID:        msg.Sender.ID,
		ChatID:          msg.ChatID,
		Text:            msg.Content,
		SentAt:          sentAt,
		SourceMessageID: msg.MessageID,
	})
	if err != nil {
		return false, fmt.Errorf("archive message: %w", err)
	}
	if id == 0 {
		s.logger.Debug("duplicate message ignored", "chat_id", msg.ChatID, "message_id", msg.MessageID)
		return false, nil
	}
	metrics.MessagesArchived.Inc()
	return true, nil
}

// GenerateFor builds a chain from the user's history in the chat and samples
// one message from it.
func (s *Service) GenerateFor(ctx context.Context, username string, chatID int64) (string, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID, "username", username, "chat_id", chatID)

	text, tokens, chainSize, err := s.generateFor(ctx, username, chatID)
	metrics.Generations.WithLabelValues(Outcome(err)).Inc()
	metrics.GenerationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, markov.ErrBrokenChain) {
			logger.Error("generation failed", "err", err)
		} else {
			logger.Info("generation refused", "err", err)
		}
		return "", err
	}

	metrics.GeneratedTokens.Observe(float64(tokens))
	metrics.ChainSize.Observe(float64(chainSize))
	logger.Info("generated parrot message",
		"tokens", tokens,
		"chain_size", chainSize,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (s *Service) generateFor(ctx context.Context, username string, chatID int64) (string, int, int, error) {
	user, err := s.archive.FindUserByUsername(ctx, username, chatID)
	if err != nil {
		return "", 0, 0, fmt.Errorf("find user %q: %w", username, err)
	}
	if user == nil {
		return "", 0, 0, fmt.Errorf("%w: %s", ErrUserNotFound, domain.NormalizeUsername(username))
	}

	texts, err := s.archive.MessageTexts(ctx, user.ID, chatID, s.historyLimit)
	if err != nil {
		return "", 0, 0, fmt.Errorf("fetch history of %d: %w", user.ID, err)
	}
	if len(texts) == 0 {
		return "", 0, 0, fmt.Errorf("%w: %s in chat %d", ErrNoHistory, user.DisplayName(), chatID)
	}

	chain := markov.BuildFromTexts(texts)
	gen := markov.NewGenerator(markov.GeneratorConfig{Source: s.source, MaxTokens: s.maxTokens})
	text, tokens, err := gen.GenerateCounted(chain)
	if err != nil {
		return "", 0, chain.Len(), err
	}
	return text, tokens, chain.Len(), nil
}

// Forget deletes every archived message of the user and returns the count.
func (s *Service) Forget(ctx context.Context, userID int64) (int64, error) {
	n, err := s.archive.DeleteMessagesFrom(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("forget %d: %w", userID, err)
	}
	metrics.MessagesForgotten.Add(float64(n))
	s.logger.Info("messages forgotten", "user_id", userID, "count", n)
	return n, nil
}

// SetTracking turns archiving of the user's future messages on or off.
func (s *Service) SetTracking(ctx context.Context, userID int64, tracked bool) error {
	if err := s.archive.SetTracking(ctx, userID, tracked); err != nil {
		return fmt.Errorf("set tracking of %d: %w", userID, err)
	}
	s.logger.Info("tracking updated", "user_id", userID, "tracked", tracked)
	return nil
}

// Stats returns per-user archived message counts for the chat.
func (s *Service) Stats(ctx context.Context, chatID int64) ([]domain.SenderStats, error) {
	stats, err := s.archive.ChatStats(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("stats of chat %d: %w", chatID, err)
	}
	return stats, nil
}

// Outcome maps a GenerateFor error to its metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrUserNotFound):
		return metrics.OutcomeUserNotFound
	case errors.Is(err, ErrNoHistory):
		return metrics.OutcomeNoHistory
	case errors.Is(err, markov.ErrEmptyModel):
		return metrics.OutcomeEmptyModel
	case errors.Is(err, markov.ErrBrokenChain):
		return metrics.OutcomeBrokenChain
	default:
		return metrics.OutcomeError
	}
}
