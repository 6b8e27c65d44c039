package channel

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"parrotbot/internal/bus"
	"parrotbot/internal/domain"
)

func TestCLI_PublishesLinesAsLocalUser(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(10, logger)
	defer b.Close()

	var out bytes.Buffer
	cli := NewCLI(CLIConfig{
		Logger:   logger,
		In:       strings.NewReader("hello\n\n/stats\n/quit\nignored\n"),
		Out:      &out,
		UserID:   5,
		Username: "@me",
		ChatID:   -9,
	})

	if err := cli.Start(context.Background(), b); err != nil {
		t.Fatalf("start: %v", err)
	}

	var got []domain.InboundMessage
	for len(got) < 2 {
		got = append(got, <-b.Subscribe())
	}
	select {
	case extra := <-b.Subscribe():
		t.Fatalf("unexpected message after /quit: %+v", extra)
	default:
	}

	if got[0].Content != "hello" || got[1].Content != "/stats" {
		t.Errorf("contents = %q, %q", got[0].Content, got[1].Content)
	}
	for _, m := range got {
		if m.Channel != "cli" || m.ChatID != -9 || m.Sender.ID != 5 || m.Sender.Username != "me" {
			t.Errorf("unexpected message %+v", m)
		}
		if _, ok := m.Chat.(domain.Group); !ok {
			t.Errorf("chat = %#v, want group", m.Chat)
		}
	}

	b.SendOutbound(domain.OutboundMessage{Channel: "cli", ChatID: -9, Content: "squawk"})
	if !strings.Contains(out.String(), "squawk") {
		t.Errorf("outbound not printed: %q", out.String())
	}
}

func TestCLI_DefaultsToPrivateChat(t *testing.T) {
	cli := NewCLI(CLIConfig{UserID: 3, In: strings.NewReader(""), Out: io.Discard})
	msg := cli.message("hi")
	if msg.ChatID != 3 {
		t.Errorf("chat id = %d, want 3", msg.ChatID)
	}
	if u, ok := msg.Chat.(domain.User); !ok || u.ID != 3 {
		t.Errorf("chat = %#v, want the user", msg.Chat)
	}
}

func TestCLI_SendFramesReply(t *testing.T) {
	var out bytes.Buffer
	cli := NewCLI(CLIConfig{UserID: 3, Username: "me", In: strings.NewReader(""), Out: &out})

	if err := cli.Send(context.Background(), domain.OutboundMessage{Channel: "cli", ChatID: 3, Content: "squawk"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := "--- ParrotBot ---\nsquawk\n-----------------\n@me> "
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestChannelsSatisfyInterface(t *testing.T) {
	var _ domain.Channel = (*Telegram)(nil)
	var _ domain.Channel = (*Discord)(nil)
	var _ domain.Channel = (*CLI)(nil)
}

func TestSend_BeforeStart(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	channels := []domain.Channel{
		NewTelegram(TelegramConfig{Token: "x", Logger: logger}),
		NewDiscord(DiscordConfig{Token: "x", Logger: logger}),
	}
	for _, ch := range channels {
		if err := ch.Send(ctx, domain.OutboundMessage{ChatID: 1}); err != nil {
			t.Errorf("%s: empty reply should be a no-op, got %v", ch.Name(), err)
		}
		if err := ch.Send(ctx, domain.OutboundMessage{ChatID: 1, Content: "hi"}); err == nil {
			t.Errorf("%s: expected error sending before start", ch.Name())
		}
	}
}
