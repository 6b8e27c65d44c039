package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"parrotbot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMsgLen = 2000
)

// Discord implements domain.Channel for Discord. Guild text channels are
// archived as groups, direct messages as the author's own conversation.
type Discord struct {
	token   string
	guildID string
	session *discordgo.Session
	bus     domain.MessageBus
	logger  *slog.Logger
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token   string
	GuildID string // restricts the bot to one guild; empty = all guilds
	Logger  *slog.Logger
}

// NewDiscord creates a new Discord channel handler.
func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Discord{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		logger:  cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to Discord using a bot token and blocks until ctx is done.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	d.bus = bus

	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	d.session = session

	bus.OnOutbound(d.Name(), func(msg domain.OutboundMessage) {
		if err := d.Send(ctx, msg); err != nil {
			d.logger.Error("discord reply failed", "channel", msg.ChatID, "err", err)
		}
	})

	session.AddHandler(d.onMessage)
	session.AddHandler(d.onInteraction)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	d.registerSlashCommands()

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// Stop is a no-op: the session closes when Start's context is cancelled.
func (d *Discord) Stop() error { return nil }

// Send posts msg in chunks. The first chunk is a reply to msg.ReplyTo, if set.
func (d *Discord) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if msg.Content == "" {
		return nil
	}
	if d.session == nil {
		return fmt.Errorf("discord channel not started")
	}
	channelID := strconv.FormatInt(msg.ChatID, 10)
	replyTo := msg.ReplyTo
	for _, chunk := range splitMessage(msg.Content, discordMaxMsgLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if replyTo != 0 {
			_, err = d.session.ChannelMessageSendReply(channelID, chunk, &discordgo.MessageReference{
				MessageID: strconv.FormatInt(replyTo, 10),
				ChannelID: channelID,
			})
			replyTo = 0
		} else {
			_, err = d.session.ChannelMessageSend(channelID, chunk)
		}
		if err != nil {
			return fmt.Errorf("discord send to %s: %w", channelID, err)
		}
	}
	return nil
}

func (d *Discord) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if d.guildID != "" && m.GuildID != "" && m.GuildID != d.guildID {
		return
	}

	title := ""
	if ch, err := s.State.Channel(m.ChannelID); err == nil {
		title = ch.Name
	}

	msg, err := inboundFromDiscord(m.Message, title)
	if err != nil {
		d.logger.Warn("dropping discord message", "channel_id", m.ChannelID, "err", err)
		return
	}
	if msg.Content == "" {
		return
	}

	d.logger.Debug("discord message received",
		"author", m.Author.Username,
		"chat_id", msg.ChatID,
		"text_len", len(msg.Content),
	)
	d.bus.Publish(msg)
}

// inboundFromDiscord converts a Discord message. Discord ids are decimal
// snowflakes and fit in int64.
func inboundFromDiscord(m *discordgo.Message, channelTitle string) (domain.InboundMessage, error) {
	if m == nil || m.Author == nil {
		return domain.InboundMessage{}, fmt.Errorf("message without author")
	}
	authorID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		return domain.InboundMessage{}, fmt.Errorf("author id %q: %w", m.Author.ID, err)
	}
	chatID, err := strconv.ParseInt(m.ChannelID, 10, 64)
	if err != nil {
		return domain.InboundMessage{}, fmt.Errorf("channel id %q: %w", m.ChannelID, err)
	}
	var messageID int64
	if m.ID != "" {
		if messageID, err = strconv.ParseInt(m.ID, 10, 64); err != nil {
			return domain.InboundMessage{}, fmt.Errorf("message id %q: %w", m.ID, err)
		}
	}

	sender := domain.NewUser(authorID, m.Author.Username, m.Author.GlobalName, "")

	var chat domain.Entity = sender
	if m.GuildID != "" {
		chat = domain.Group{ID: chatID, Title: channelTitle}
	}

	return domain.InboundMessage{
		Channel:   "discord",
		ChatID:    chatID,
		MessageID: messageID,
		Sender:    sender,
		Chat:      chat,
		Content:   strings.TrimSpace(m.Content),
		Timestamp: m.Timestamp,
	}, nil
}

// onInteraction turns slash commands into the equivalent text command.
func (d *Discord) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	content := "/" + data.Name
	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			content += " " + opt.StringValue()
		case discordgo.ApplicationCommandOptionBoolean:
			content += " " + strconv.FormatBool(opt.BoolValue())
		}
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	// Acknowledge with the command itself; the answer follows as a regular message.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}); err != nil {
		d.logger.Warn("discord interaction ack failed", "err", err)
	}

	title := ""
	if ch, err := s.State.Channel(i.ChannelID); err == nil {
		title = ch.Name
	}
	msg, err := inboundFromDiscord(&discordgo.Message{
		ChannelID: i.ChannelID,
		GuildID:   i.GuildID,
		Author:    user,
		Content:   content,
	}, title)
	if err != nil {
		d.logger.Warn("dropping discord interaction", "err", err)
		return
	}
	d.bus.Publish(msg)
}

func (d *Discord) registerSlashCommands() {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "parrot",
			Description: "Say something the way a user would",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "Who to imitate",
					Required:    true,
				},
			},
		},
		{
			Name:        "forget",
			Description: "Delete all your archived messages",
		},
		{
			Name:        "set_tracking",
			Description: "Turn archiving of your messages on or off",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Archive my messages",
					Required:    true,
				},
			},
		},
		{
			Name:        "stats",
			Description: "Show who has the most archived messages here",
		},
		{
			Name:        "help",
			Description: "Show available commands",
		},
	}

	guildID := d.guildID // empty = global commands
	for _, cmd := range commands {
		_, err := d.session.ApplicationCommandCreate(d.session.State.User.ID, guildID, cmd)
		if err != nil {
			d.logger.Warn("failed to register slash command", "command", cmd.Name, "err", err)
		}
	}
}
