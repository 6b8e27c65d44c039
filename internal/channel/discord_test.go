package channel

import (
	"testing"
	"time"

	"parrotbot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

func TestInboundFromDiscord_Guild(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := &discordgo.Message{
		ID:        "1100000000000000001",
		ChannelID: "1100000000000000002",
		GuildID:   "1100000000000000003",
		Author:    &discordgo.User{ID: "1100000000000000004", Username: "polly", GlobalName: "Polly"},
		Content:   " hello there ",
		Timestamp: ts,
	}

	msg, err := inboundFromDiscord(m, "general")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if msg.ChatID != 1100000000000000002 || msg.MessageID != 1100000000000000001 {
		t.Errorf("ids = %d/%d", msg.ChatID, msg.MessageID)
	}
	if msg.Sender.ID != 1100000000000000004 || msg.Sender.FirstName != "Polly" {
		t.Errorf("sender = %+v", msg.Sender)
	}
	if g, ok := msg.Chat.(domain.Group); !ok || g.Title != "general" {
		t.Errorf("chat = %#v", msg.Chat)
	}
	if msg.Content != "hello there" || !msg.Timestamp.Equal(ts) {
		t.Errorf("content/timestamp = %q/%v", msg.Content, msg.Timestamp)
	}
}

func TestInboundFromDiscord_DirectMessage(t *testing.T) {
	m := &discordgo.Message{
		ChannelID: "55",
		Author:    &discordgo.User{ID: "7", Username: "polly"},
		Content:   "/forget",
	}
	msg, err := inboundFromDiscord(m, "")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if u, ok := msg.Chat.(domain.User); !ok || u.ID != 7 {
		t.Errorf("chat = %#v, want author", msg.Chat)
	}
	if msg.MessageID != 0 {
		t.Errorf("message id = %d, want 0", msg.MessageID)
	}
}

func TestInboundFromDiscord_BadIDs(t *testing.T) {
	cases := []*discordgo.Message{
		nil,
		{ChannelID: "1"},
		{ChannelID: "1", Author: &discordgo.User{ID: "x"}},
		{ChannelID: "y", Author: &discordgo.User{ID: "1"}},
		{ID: "z", ChannelID: "1", Author: &discordgo.User{ID: "1"}},
	}
	for i, m := range cases {
		if _, err := inboundFromDiscord(m, ""); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
