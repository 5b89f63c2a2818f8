package repository

import (
	"context"

	"campusmarket/internal/domain/entity"
)

type ChatRepository interface {
	CreateChat(ctx context.Context, chat *entity.Chat) error
	GetChat(ctx context.Context, ownerID, chatID string) (*entity.Chat, error)
	ListChats(ctx context.Context, ownerID string) ([]*entity.Chat, error)
	UpdateChat(ctx context.Context, chat *entity.Chat) error

	// Message methods. Messages are owner-scoped: each participant keeps an
	// independent copy of the conversation log.
	AppendMessage(ctx context.Context, ownerID string, message *entity.Message) error
	ListMessages(ctx context.Context, ownerID, chatID string) ([]*entity.Message, error)
	SaveMessages(ctx context.Context, ownerID, chatID string, messages []*entity.Message) error
}
