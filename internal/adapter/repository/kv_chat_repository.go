package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/internal/infrastructure/storage"
	"campusmarket/pkg/errors"
)

const (
	chatNamespace    = "chats"
	messageNamespace = "messages"
)

type kvChatRepository struct {
	store *storage.Store
}

func NewKVChatRepository(store *storage.Store) repository.ChatRepository {
	return &kvChatRepository{store: store}
}

func chatKey(ownerID, chatID string) string {
	return ownerID + "/" + chatID
}

func (r *kvChatRepository) CreateChat(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = entity.ChatIDFor(chat.OwnerID, chat.Peer.ID)
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	if err := r.store.Set(ctx, chatNamespace, chatKey(chat.OwnerID, chat.ID), chat); err != nil {
		return errors.Internal("Failed to create chat", err)
	}
	return nil
}

func (r *kvChatRepository) GetChat(ctx context.Context, ownerID, chatID string) (*entity.Chat, error) {
	var chat entity.Chat
	found, err := r.store.Get(ctx, chatNamespace, chatKey(ownerID, chatID), &chat)
	if err != nil {
		return nil, errors.Internal("Failed to get chat", err)
	}
	if !found {
		return nil, errors.NotFound("Chat", nil)
	}
	return &chat, nil
}

func (r *kvChatRepository) ListChats(ctx context.Context, ownerID string) ([]*entity.Chat, error) {
	keys, err := r.store.Keys(ctx, chatNamespace)
	if err != nil {
		return nil, errors.Internal("Failed to list chats", err)
	}

	prefix := ownerID + "/"
	var chats []*entity.Chat
	for _, key := range keys {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}

		var chat entity.Chat
		found, err := r.store.Get(ctx, chatNamespace, key, &chat)
		if err != nil {
			return nil, errors.Internal("Failed to read chat", err)
		}
		if found && !chat.IsDeleted() {
			chats = append(chats, &chat)
		}
	}
	return chats, nil
}

func (r *kvChatRepository) UpdateChat(ctx context.Context, chat *entity.Chat) error {
	chat.UpdatedAt = time.Now()

	if err := r.store.Set(ctx, chatNamespace, chatKey(chat.OwnerID, chat.ID), chat); err != nil {
		return errors.Internal("Failed to update chat", err)
	}
	return nil
}

func (r *kvChatRepository) AppendMessage(ctx context.Context, ownerID string, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	messages, err := r.ListMessages(ctx, ownerID, message.ChatID)
	if err != nil {
		return err
	}

	messages = append(messages, message)
	return r.SaveMessages(ctx, ownerID, message.ChatID, messages)
}

func (r *kvChatRepository) ListMessages(ctx context.Context, ownerID, chatID string) ([]*entity.Message, error) {
	var messages []*entity.Message
	if _, err := r.store.Get(ctx, messageNamespace, chatKey(ownerID, chatID), &messages); err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	return messages, nil
}

func (r *kvChatRepository) SaveMessages(ctx context.Context, ownerID, chatID string, messages []*entity.Message) error {
	if err := r.store.Set(ctx, messageNamespace, chatKey(ownerID, chatID), messages); err != nil {
		return errors.Internal("Failed to save messages", err)
	}
	return nil
}
