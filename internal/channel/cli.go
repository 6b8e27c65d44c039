package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"parrotbot/internal/domain"
)

// CLI implements domain.Channel for an interactive terminal session. Every
// line is sent by one local user into one local chat.
type CLI struct {
	bus    domain.MessageBus
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	user   domain.User
	chat   domain.Entity
}

type CLIConfig struct {
	Logger   *slog.Logger
	In       io.Reader
	Out      io.Writer
	UserID   int64
	Username string
	ChatID   int64 // equal to UserID for a private chat
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.UserID == 0 {
		cfg.UserID = 1
	}
	if cfg.ChatID == 0 {
		cfg.ChatID = cfg.UserID
	}

	user := domain.NewUser(cfg.UserID, domain.NormalizeUsername(cfg.Username), "", "")
	var chat domain.Entity = user
	if cfg.ChatID != cfg.UserID {
		chat = domain.Group{ID: cfg.ChatID, Title: "local"}
	}
	return &CLI{
		logger: cfg.Logger,
		in:     cfg.In,
		out:    cfg.Out,
		user:   user,
		chat:   chat,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive REPL and blocks until EOF, /quit or ctx is done.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound(c.Name(), func(msg domain.OutboundMessage) {
		if err := c.Send(ctx, msg); err != nil {
			c.logger.Error("cli reply failed", "err", err)
		}
	})

	_, _ = fmt.Fprintln(c.out, "ParrotBot CLI. Chat as "+c.user.DisplayName()+". Type /help for commands, /quit to exit.")
	_, _ = fmt.Fprint(c.out, c.prompt())

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = fmt.Fprint(c.out, c.prompt())
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		c.bus.Publish(c.message(line))
		if !strings.HasPrefix(line, "/") {
			_, _ = fmt.Fprint(c.out, c.prompt())
		}
	}
}

// message builds the inbound message for a line. Local lines carry no
// source message id, so they are never treated as redeliveries.
func (c *CLI) message(line string) domain.InboundMessage {
	return domain.InboundMessage{
		Channel:   c.Name(),
		ChatID:    c.chat.EntityID(),
		Sender:    c.user,
		Chat:      c.chat,
		Content:   line,
		Timestamp: time.Now(),
	}
}

func (c *CLI) prompt() string {
	return c.user.DisplayName() + "> "
}

// Stop is a no-op for CLI (we exit when Start returns).
func (c *CLI) Stop() error { return nil }

// Send prints a reply framed as bot output, then redraws the prompt.
func (c *CLI) Send(_ context.Context, msg domain.OutboundMessage) error {
	_, err := fmt.Fprintf(c.out, "--- ParrotBot ---\n%s\n-----------------\n%s", msg.Content, c.prompt())
	return err
}
