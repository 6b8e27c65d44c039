package parrot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"parrotbot/internal/archive"
	"parrotbot/internal/domain"

	"github.com/stretchr/testify/require"
)

func newSQLiteService(t *testing.T) (*Service, *archive.SQLiteStore) {
	t.Helper()
	store, err := archive.NewSQLiteStore(filepath.Join(t.TempDir(), "parrot.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(Config{Archive: store, Logger: testLogger()}), store
}

func TestIntegration_ParrotsRecordedHistory(t *testing.T) {
	req := require.New(t)
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	group := domain.Group{ID: -100, Title: "Birds"}

	for i, text := range []string{"I like cats.", "I like dogs."} {
		_, err := svc.Record(ctx, domain.InboundMessage{
			ChatID: group.ID, MessageID: int64(i + 1), Sender: polly, Chat: group, Content: text,
		})
		req.NoError(err)
	}

	for i := 0; i < 200; i++ {
		out, err := svc.GenerateFor(ctx, "Polly", group.ID)
		req.NoError(err)
		req.True(strings.HasPrefix(out, "I "), out)
		req.NotContains(out, " .")
	}
}

func TestIntegration_NoHistoryInOtherChat(t *testing.T) {
	req := require.New(t)
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.InboundMessage{ChatID: -1, Sender: polly, Chat: domain.Group{ID: -1}, Content: "hi"})
	req.NoError(err)

	_, err = svc.GenerateFor(ctx, "polly", -2)
	req.ErrorIs(err, ErrNoHistory)
}

func TestIntegration_SharedUsernameAcrossChannels(t *testing.T) {
	req := require.New(t)
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	telegramAlice := domain.NewUser(42, "alice", "", "")
	discordAlice := domain.NewUser(1100000000000000000, "alice", "", "")

	_, err := svc.Record(ctx, domain.InboundMessage{
		Channel: "telegram", ChatID: -100, MessageID: 1, Sender: telegramAlice,
		Chat: domain.Group{ID: -100, Title: "Birds"}, Content: "hello there.",
	})
	req.NoError(err)
	_, err = svc.Record(ctx, domain.InboundMessage{
		Channel: "discord", ChatID: 900, MessageID: 1, Sender: discordAlice,
		Chat: domain.Group{ID: 900, Title: "general"}, Content: "something else entirely",
	})
	req.NoError(err)

	out, err := svc.GenerateFor(ctx, "alice", -100)
	req.NoError(err)
	req.True(strings.HasPrefix(out, "hello there."), out)
}

func TestIntegration_OptOutAndForget(t *testing.T) {
	req := require.New(t)
	svc, store := newSQLiteService(t)
	ctx := context.Background()
	group := domain.Group{ID: -100, Title: "Birds"}
	msg := func(id int64, text string) domain.InboundMessage {
		return domain.InboundMessage{ChatID: group.ID, MessageID: id, Sender: polly, Chat: group, Content: text}
	}

	archived, err := svc.Record(ctx, msg(1, "remember me"))
	req.NoError(err)
	req.True(archived)

	req.NoError(svc.SetTracking(ctx, polly.ID, false))
	archived, err = svc.Record(ctx, msg(2, "forget me"))
	req.NoError(err)
	req.False(archived)

	texts, err := store.MessageTexts(ctx, polly.ID, group.ID, 0)
	req.NoError(err)
	req.Equal([]string{"remember me"}, texts)

	n, err := svc.Forget(ctx, polly.ID)
	req.NoError(err)
	req.Equal(int64(1), n)

	_, err = svc.GenerateFor(ctx, "polly", group.ID)
	req.ErrorIs(err, ErrNoHistory)

	stats, err := svc.Stats(ctx, group.ID)
	req.NoError(err)
	req.Empty(stats)
}
