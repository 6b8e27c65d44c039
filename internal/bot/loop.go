// Package bot dispatches chat messages: plain text is archived, commands are
// answered.
package bot

import (
	"context"
	"log/slog"
	"time"

	"parrotbot/internal/domain"
	"parrotbot/internal/metrics"
	"parrotbot/internal/parrot"
)

const (
	defaultConcurrency     = 3
	defaultParrotBurst     = 5
	defaultParrotPerMinute = 20.0
)

// Loop consumes inbound messages from the bus.
type Loop struct {
	service     *parrot.Service
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
	limiter     *ChatLimiter
	startTime   time.Time
}

// LoopConfig holds all dependencies and tuning parameters for the bot loop.
type LoopConfig struct {
	Service         *parrot.Service
	Bus             domain.MessageBus
	Logger          *slog.Logger
	Concurrency     int     // max commands handled in parallel (default 3)
	ParrotBurst     int     // /parrot calls allowed back to back per chat (default 5)
	ParrotPerMinute float64 // sustained /parrot rate per chat (default 20)
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.ParrotBurst <= 0 {
		cfg.ParrotBurst = defaultParrotBurst
	}
	if cfg.ParrotPerMinute <= 0 {
		cfg.ParrotPerMinute = defaultParrotPerMinute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		service:     cfg.Service,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		limiter:     NewChatLimiter(cfg.ParrotBurst, cfg.ParrotPerMinute),
		startTime:   time.Now(),
	}
}

// Run consumes inbound messages until ctx is done or the bus closes. Plain
// messages are archived in arrival order on the loop goroutine; commands run
// with bounded concurrency.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("bot loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("bot loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, bot loop stopping")
				return
			}
			cmd := ParseCommand(msg.Content)
			if cmd == nil {
				l.record(ctx, msg)
				continue
			}
			if !acquire(ctx, sem) {
				l.logger.Info("bot loop stopping with commands in flight")
				return
			}
			go func(m domain.InboundMessage, c *ChatCommand) {
				defer func() { <-sem }()
				l.command(ctx, c, m)
			}(msg, cmd)
		}
	}
}

// acquire takes a worker slot, giving up when ctx is done first.
func acquire(ctx context.Context, sem chan struct{}) bool {
	select {
	case sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Process handles one message synchronously and returns the reply, if any.
func (l *Loop) Process(ctx context.Context, msg domain.InboundMessage) string {
	if cmd := ParseCommand(msg.Content); cmd != nil {
		return l.handle(ctx, cmd, msg)
	}
	l.record(ctx, msg)
	return ""
}

func (l *Loop) record(ctx context.Context, msg domain.InboundMessage) {
	archived, err := l.service.Record(ctx, msg)
	if err != nil {
		l.logger.Error("record message failed",
			"channel", msg.Channel,
			"chat_id", msg.ChatID,
			"sender", msg.Sender.ID,
			"err", err,
		)
		return
	}
	l.logger.Debug("message observed",
		"chat_id", msg.ChatID,
		"sender", msg.Sender.ID,
		"archived", archived,
	)
}

func (l *Loop) command(ctx context.Context, cmd *ChatCommand, msg domain.InboundMessage) {
	response := l.handle(ctx, cmd, msg)
	if response == "" {
		return
	}
	l.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: response,
		ReplyTo: msg.MessageID,
	})
}

func (l *Loop) handle(ctx context.Context, cmd *ChatCommand, msg domain.InboundMessage) string {
	// Commands are not archived, but the people issuing them are still known.
	if err := l.service.Observe(ctx, msg); err != nil {
		l.logger.Warn("observe command sender failed", "sender", msg.Sender.ID, "err", err)
	}

	res := l.HandleCommand(ctx, cmd, msg)
	if !res.Handled {
		l.logger.Debug("ignoring unknown command", "command", cmd.Name, "chat_id", msg.ChatID)
		return ""
	}
	metrics.Commands.WithLabelValues(cmd.Name).Inc()
	l.logger.Info("command handled",
		"command", cmd.Name,
		"chat_id", msg.ChatID,
		"sender", msg.Sender.ID,
	)
	return res.Response
}
