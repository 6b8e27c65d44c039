package parrot

//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive.go -package=mocks

import (
	"context"

	"parrotbot/internal/domain"
)

// Archive is the persistence the service needs. *archive.SQLiteStore
// implements it.
type Archive interface {
	UpsertEntity(ctx context.Context, e domain.Entity) error
	IsTracked(ctx context.Context, userID int64) (bool, error)
	SetTracking(ctx context.Context, userID int64, tracked bool) error
	AddMessage(ctx context.Context, msg domain.ArchivedMessage) (int64, error)
	FindUserByUsername(ctx context.Context, username string, chatID int64) (*domain.User, error)
	MessageTexts(ctx context.Context, senderID, chatID int64, limit int) ([]string, error)
	DeleteMessagesFrom(ctx context.Context, senderID int64) (int64, error)
	ChatStats(ctx context.Context, chatID int64) ([]domain.SenderStats, error)
}
