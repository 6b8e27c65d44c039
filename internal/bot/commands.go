package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parrotbot/internal/archive"
	"parrotbot/internal/domain"
	"parrotbot/internal/markov"
	"parrotbot/internal/metrics"
	"parrotbot/internal/parrot"
)

// ChatCommand represents a parsed chat command.
type ChatCommand struct {
	Name string   // command name without "/" and "@botname"
	Args []string // arguments after the command
	Raw  string   // original full text
}

// CommandResult holds the response for a handled command.
type CommandResult struct {
	Response string // text response to send back
	Handled  bool   // false for commands this bot does not know
}

const statsLimit = 10

// ParseCommand checks if a message starts with "/" and parses it into a ChatCommand.
// Returns nil if the message is not a command.
func ParseCommand(text string) *ChatCommand {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	parts := strings.Fields(text)
	name := strings.TrimPrefix(parts[0], "/")
	// Group chats address commands as /parrot@SomeBot.
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return nil
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return &ChatCommand{
		Name: strings.ToLower(name),
		Args: args,
		Raw:  text,
	}
}

// HandleCommand runs a chat command. Unknown commands return Handled=false
// and are ignored; groups often host several bots.
func (l *Loop) HandleCommand(ctx context.Context, cmd *ChatCommand, msg domain.InboundMessage) CommandResult {
	switch cmd.Name {
	case "start":
		return CommandResult{Response: startText(), Handled: true}

	case "help":
		return CommandResult{Response: helpText(), Handled: true}

	case "parrot":
		return CommandResult{Response: l.parrot(ctx, cmd, msg), Handled: true}

	case "forget":
		return CommandResult{Response: l.forget(ctx, msg), Handled: true}

	case "set_tracking", "tracking":
		return CommandResult{Response: l.setTracking(ctx, cmd, msg), Handled: true}

	case "stats":
		return CommandResult{Response: l.stats(ctx, msg), Handled: true}

	case "uptime":
		uptime := time.Since(l.startTime).Round(time.Second)
		return CommandResult{Response: fmt.Sprintf("Uptime: %s", uptime), Handled: true}

	default:
		return CommandResult{Handled: false}
	}
}

func (l *Loop) parrot(ctx context.Context, cmd *ChatCommand, msg domain.InboundMessage) string {
	if len(cmd.Args) == 0 {
		return "Usage: /parrot <username>"
	}
	username := domain.NormalizeUsername(cmd.Args[0])

	if !l.limiter.Allow(msg.ChatID) {
		metrics.Generations.WithLabelValues(metrics.OutcomeThrottled).Inc()
		return "Squawk! Too many parrots at once, give me a moment."
	}

	text, err := l.service.GenerateFor(ctx, username, msg.ChatID)
	switch {
	case err == nil:
		return text
	case errors.Is(err, parrot.ErrUserNotFound):
		return fmt.Sprintf("I don't know anyone called @%s.", username)
	case errors.Is(err, parrot.ErrNoHistory):
		return fmt.Sprintf("@%s hasn't said anything here yet, nothing to parrot.", username)
	case errors.Is(err, markov.ErrEmptyModel):
		return fmt.Sprintf("@%s's messages have no words I could parrot.", username)
	default:
		l.logger.Error("parrot failed", "username", username, "chat_id", msg.ChatID, "err", err)
		return "Sorry, something went wrong while parroting."
	}
}

func (l *Loop) forget(ctx context.Context, msg domain.InboundMessage) string {
	n, err := l.service.Forget(ctx, msg.Sender.ID)
	if err != nil {
		l.logger.Error("forget failed", "user_id", msg.Sender.ID, "err", err)
		return "Sorry, I couldn't delete your messages. Please try again."
	}
	return fmt.Sprintf("All your messages have been deleted (%d). "+
		"To also stop further tracking use the /set_tracking false command.", n)
}

func (l *Loop) setTracking(ctx context.Context, cmd *ChatCommand, msg domain.InboundMessage) string {
	tracked, ok := parseTrackingArg(cmd.Args)
	if !ok {
		return "Usage: /set_tracking true|false"
	}
	if err := l.service.SetTracking(ctx, msg.Sender.ID, tracked); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return "I haven't seen you yet, say something first."
		}
		l.logger.Error("set tracking failed", "user_id", msg.Sender.ID, "err", err)
		return "Sorry, I couldn't update your tracking status."
	}
	return fmt.Sprintf("Your tracking status is now: %t. To delete all messages use the /forget command.", tracked)
}

func parseTrackingArg(args []string) (bool, bool) {
	if len(args) != 1 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "true", "on", "yes":
		return true, true
	case "false", "off", "no":
		return false, true
	}
	return false, false
}

func (l *Loop) stats(ctx context.Context, msg domain.InboundMessage) string {
	stats, err := l.service.Stats(ctx, msg.ChatID)
	if err != nil {
		l.logger.Error("stats failed", "chat_id", msg.ChatID, "err", err)
		return "Sorry, I couldn't load the stats."
	}
	if len(stats) == 0 {
		return "Nothing archived in this chat yet."
	}

	var sb strings.Builder
	sb.WriteString("Archived messages in this chat:\n")
	for i, s := range stats {
		if i == statsLimit {
			sb.WriteString(fmt.Sprintf("...and %d more\n", len(stats)-statsLimit))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s: %d\n", i+1, s.User.DisplayName(), s.Messages))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func startText() string {
	return "Hi! I'm ParrotBot. I remember what people say in this chat and can imitate them.\n\n" +
		"Try /parrot <username>. Type /help for all commands."
}

func helpText() string {
	return `ParrotBot commands

/parrot <username> - Say something the way that user would
/forget - Delete all your archived messages
/set_tracking true|false - Turn archiving of your messages on or off
/stats - Show who has the most archived messages here
/uptime - Show bot uptime
/help - Show this help message`
}
