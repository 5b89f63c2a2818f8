package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/internal/infrastructure/rest"
	ws "campusmarket/internal/infrastructure/websocket"
	"campusmarket/pkg/errors"
	"campusmarket/pkg/logger"
	"campusmarket/pkg/utils"
)

// ChatUseCase persists and queries per-chat message history and the chat
// list, independent of whether the realtime channel is currently connected.
type ChatUseCase struct {
	chatRepo   repository.ChatRepository
	userRepo   repository.UserRepository
	session    *ws.Session
	bus        *ws.Bus
	restClient *rest.Client
	identity   ws.Identity
	validate   *validator.Validate

	unsubscribe []func()
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	session *ws.Session,
	bus *ws.Bus,
	restClient *rest.Client,
	identity ws.Identity,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		session:    session,
		bus:        bus,
		restClient: restClient,
		identity:   identity,
		validate:   validator.New(),
	}
}

// BindRealtime subscribes the store to inbound realtime events. Call once
// after construction; Dispose removes the subscriptions.
func (uc *ChatUseCase) BindRealtime() {
	uc.unsubscribe = append(uc.unsubscribe,
		uc.bus.Subscribe(ws.EventNewMessage, func(env ws.Envelope) {
			var payload ws.MessagePayload
			if err := env.Decode(&payload); err != nil {
				logger.Warn("Dropping malformed new_message event: %v", err)
				return
			}
			userID, _, ok := uc.identity.Current()
			if !ok || payload.ReceiverID != userID {
				return
			}
			if err := uc.HandleIncomingMessage(context.Background(), payload); err != nil {
				logger.Error("Failed to store incoming message %s: %v", payload.ID, err)
			}
		}),
		uc.bus.Subscribe(ws.EventReadReceipt, func(env ws.Envelope) {
			var payload ws.ReadReceiptPayload
			if err := env.Decode(&payload); err != nil {
				logger.Warn("Dropping malformed read_receipt event: %v", err)
				return
			}
			userID, _, ok := uc.identity.Current()
			if !ok {
				return
			}
			if err := uc.HandleReadReceipt(context.Background(), userID, payload); err != nil {
				logger.Error("Failed to apply read receipt for chat %s: %v", payload.ChatID, err)
			}
		}),
	)
}

func (uc *ChatUseCase) Dispose() {
	for _, fn := range uc.unsubscribe {
		fn()
	}
	uc.unsubscribe = nil
}

type SendMessageInput struct {
	SenderID      string `validate:"required"`
	ReceiverID    string `validate:"required,nefield=SenderID"`
	Type          string `validate:"required,oneof=text image item system"`
	Content       string
	AttachmentURL string
	ItemID        string
	Metadata      map[string]interface{}
}

// SendMessage validates and persists an outbound message, updates the owning
// chat's preview, and pushes it over the realtime session (queued when
// offline). The stored status is sent; delivery and read confirmations
// arrive asynchronously as receipts.
func (uc *ChatUseCase) SendMessage(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, errors.BadRequest("Invalid message", err)
	}
	if err := validateMessagePayload(input); err != nil {
		return nil, err
	}

	chatID := entity.ChatIDFor(input.SenderID, input.ReceiverID)
	chat, err := uc.ensureChat(ctx, input.SenderID, input.ReceiverID, input.ItemID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ID:            uuid.New().String(),
		ChatID:        chatID,
		SenderID:      input.SenderID,
		ReceiverID:    input.ReceiverID,
		Type:          input.Type,
		Content:       input.Content,
		AttachmentURL: input.AttachmentURL,
		Metadata:      input.Metadata,
		Status:        entity.MessageStatusSending,
		CreatedAt:     time.Now(),
	}

	if err := uc.chatRepo.AppendMessage(ctx, input.SenderID, message); err != nil {
		message.AdvanceStatus(entity.MessageStatusFailed)
		return nil, err
	}

	message.AdvanceStatus(entity.MessageStatusSent)
	if err := uc.updateOwnedMessage(ctx, input.SenderID, message); err != nil {
		logger.Warn("Failed to confirm persisted message %s: %v", message.ID, err)
	}

	chat.LastMessage = messagePreview(message)
	chat.LastMessageType = message.Type
	chat.LastMessageAt = message.CreatedAt
	if err := uc.chatRepo.UpdateChat(ctx, chat); err != nil {
		logger.Warn("Failed to update chat preview for %s: %v", chatID, err)
	}

	queued, err := uc.session.Send(ws.EventNewMessage, ws.MessagePayload{
		ID:            message.ID,
		ChatID:        message.ChatID,
		SenderID:      message.SenderID,
		ReceiverID:    message.ReceiverID,
		Type:          message.Type,
		Content:       message.Content,
		AttachmentURL: message.AttachmentURL,
		Metadata:      message.Metadata,
		Timestamp:     message.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		logger.Warn("Failed to push message %s over realtime channel: %v", message.ID, err)
	} else if queued {
		logger.Debug("Message %s queued for delivery after reconnect", message.ID)
	}

	return message, nil
}

// SendImageMessage uploads a local image through the REST API first, then
// sends the resulting URL as an image message.
func (uc *ChatUseCase) SendImageMessage(ctx context.Context, senderID, receiverID, localPath string) (*entity.Message, error) {
	if uc.restClient == nil {
		return nil, errors.Internal("Upload client not configured", nil)
	}

	servedURL, err := uc.restClient.Upload(ctx, "/files", "file", localPath)
	if err != nil {
		return nil, err
	}

	return uc.SendMessage(ctx, SendMessageInput{
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Type:          entity.MessageTypeImage,
		AttachmentURL: servedURL,
	})
}

// GetChatMessages returns one page of the chat's visible messages ordered
// oldest to newest, and whether more pages exist.
func (uc *ChatUseCase) GetChatMessages(ctx context.Context, ownerID, chatID string, pagination utils.Pagination) ([]*entity.Message, bool, error) {
	all, err := uc.chatRepo.ListMessages(ctx, ownerID, chatID)
	if err != nil {
		return nil, false, err
	}

	visible := make([]*entity.Message, 0, len(all))
	for _, m := range all {
		if !m.IsDeleted() {
			visible = append(visible, m)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.Before(visible[j].CreatedAt)
	})

	start, end, hasMore := pagination.Bounds(len(visible))
	return visible[start:end], hasMore, nil
}

// MarkMessagesAsRead zeroes the chat's unread counter and flips every
// message addressed to userID to read. Idempotent: a second call is a no-op.
func (uc *ChatUseCase) MarkMessagesAsRead(ctx context.Context, chatID, userID string) error {
	chat, err := uc.chatRepo.GetChat(ctx, userID, chatID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil
		}
		return err
	}

	if chat.UnreadCount != 0 {
		chat.UnreadCount = 0
		if err := uc.chatRepo.UpdateChat(ctx, chat); err != nil {
			return err
		}
	}

	messages, err := uc.chatRepo.ListMessages(ctx, userID, chatID)
	if err != nil {
		return err
	}

	changed := false
	for _, m := range messages {
		if m.ReceiverID != userID || m.IsDeleted() {
			continue
		}
		if m.AdvanceStatus(entity.MessageStatusRead) {
			changed = true
		}
	}
	if changed {
		if err := uc.chatRepo.SaveMessages(ctx, userID, chatID, messages); err != nil {
			return err
		}
		if queued, err := uc.session.Send(ws.EventReadReceipt, ws.ReadReceiptPayload{
			ChatID:   chatID,
			ReaderID: userID,
		}); err != nil {
			logger.Warn("Failed to send read receipt for chat %s: %v", chatID, err)
		} else if queued {
			logger.Debug("Read receipt for chat %s queued", chatID)
		}
	}
	return nil
}

// DeleteChat tombstones the chat and its messages in this participant's own
// copy only; the other side's view is untouched.
func (uc *ChatUseCase) DeleteChat(ctx context.Context, chatID, userID string) error {
	chat, err := uc.chatRepo.GetChat(ctx, userID, chatID)
	if err != nil {
		return err
	}

	now := time.Now()
	chat.DeletedAt = &now
	chat.UnreadCount = 0
	if err := uc.chatRepo.UpdateChat(ctx, chat); err != nil {
		return err
	}

	messages, err := uc.chatRepo.ListMessages(ctx, userID, chatID)
	if err != nil {
		return err
	}
	for _, m := range messages {
		if m.DeletedAt == nil {
			m.DeletedAt = &now
		}
	}
	return uc.chatRepo.SaveMessages(ctx, userID, chatID, messages)
}

func (uc *ChatUseCase) TogglePinChat(ctx context.Context, chatID, userID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	chat.IsPinned = !chat.IsPinned
	if err := uc.chatRepo.UpdateChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (uc *ChatUseCase) ToggleMuteChat(ctx context.Context, chatID, userID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	chat.IsMuted = !chat.IsMuted
	if err := uc.chatRepo.UpdateChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// ListChats returns the user's chat list: pinned chats first, then most
// recently active.
func (uc *ChatUseCase) ListChats(ctx context.Context, userID string) ([]*entity.Chat, error) {
	chats, err := uc.chatRepo.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortChats(chats)
	return chats, nil
}

// SearchChats filters the chat list by case-insensitive substring match over
// the peer's display name and the last-message preview.
func (uc *ChatUseCase) SearchChats(ctx context.Context, userID, query string) ([]*entity.Chat, error) {
	chats, err := uc.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return chats, nil
	}

	var matched []*entity.Chat
	for _, c := range chats {
		if strings.Contains(strings.ToLower(c.Peer.Username), needle) ||
			strings.Contains(strings.ToLower(c.LastMessage), needle) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// HandleIncomingMessage stores a message delivered over the realtime channel
// into the receiver's copy of the chat, bumping the unread counter.
func (uc *ChatUseCase) HandleIncomingMessage(ctx context.Context, payload ws.MessagePayload) error {
	existing, err := uc.chatRepo.ListMessages(ctx, payload.ReceiverID, payload.ChatID)
	if err != nil {
		return err
	}
	for _, m := range existing {
		if m.ID == payload.ID {
			return nil // duplicate delivery
		}
	}

	chat, err := uc.ensureChat(ctx, payload.ReceiverID, payload.SenderID, "")
	if err != nil {
		return err
	}

	createdAt, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		createdAt = time.Now()
	}

	message := &entity.Message{
		ID:            payload.ID,
		ChatID:        payload.ChatID,
		SenderID:      payload.SenderID,
		ReceiverID:    payload.ReceiverID,
		Type:          payload.Type,
		Content:       payload.Content,
		AttachmentURL: payload.AttachmentURL,
		Metadata:      payload.Metadata,
		Status:        entity.MessageStatusDelivered,
		CreatedAt:     createdAt,
	}
	if err := uc.chatRepo.AppendMessage(ctx, payload.ReceiverID, message); err != nil {
		return err
	}

	chat.UnreadCount++
	chat.LastMessage = messagePreview(message)
	chat.LastMessageType = message.Type
	chat.LastMessageAt = message.CreatedAt
	return uc.chatRepo.UpdateChat(ctx, chat)
}

// HandleReadReceipt mirrors the peer's read action onto the sender's copy:
// every message the owner sent to the reader in that chat becomes read.
func (uc *ChatUseCase) HandleReadReceipt(ctx context.Context, ownerID string, payload ws.ReadReceiptPayload) error {
	messages, err := uc.chatRepo.ListMessages(ctx, ownerID, payload.ChatID)
	if err != nil {
		return err
	}

	changed := false
	for _, m := range messages {
		if m.SenderID != ownerID || m.ReceiverID != payload.ReaderID || m.IsDeleted() {
			continue
		}
		if m.AdvanceStatus(entity.MessageStatusRead) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return uc.chatRepo.SaveMessages(ctx, ownerID, payload.ChatID, messages)
}

func (uc *ChatUseCase) ensureChat(ctx context.Context, ownerID, peerID, itemID string) (*entity.Chat, error) {
	chatID := entity.ChatIDFor(ownerID, peerID)

	chat, err := uc.chatRepo.GetChat(ctx, ownerID, chatID)
	if err == nil {
		if chat.IsDeleted() {
			// New traffic revives a deleted chat in this owner's list.
			chat.DeletedAt = nil
			if err := uc.chatRepo.UpdateChat(ctx, chat); err != nil {
				return nil, err
			}
		}
		return chat, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	peer := entity.ChatPeer{ID: peerID}
	if user, err := uc.userRepo.GetByID(ctx, peerID); err == nil {
		peer.Username = user.Username
		peer.AvatarURL = user.AvatarURL
		peer.IsOnline = user.IsOnline
	}

	chat = &entity.Chat{
		ID:           chatID,
		OwnerID:      ownerID,
		Participants: []string{ownerID, peerID},
		Peer:         peer,
		ItemID:       itemID,
	}
	if err := uc.chatRepo.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (uc *ChatUseCase) updateOwnedMessage(ctx context.Context, ownerID string, message *entity.Message) error {
	messages, err := uc.chatRepo.ListMessages(ctx, ownerID, message.ChatID)
	if err != nil {
		return err
	}
	for i, m := range messages {
		if m.ID == message.ID {
			messages[i] = message
			return uc.chatRepo.SaveMessages(ctx, ownerID, message.ChatID, messages)
		}
	}
	return errors.NotFound("Message", nil)
}

func validateMessagePayload(input SendMessageInput) error {
	switch input.Type {
	case entity.MessageTypeText, entity.MessageTypeSystem:
		if strings.TrimSpace(input.Content) == "" {
			return errors.BadRequest("Message content is required", nil)
		}
	case entity.MessageTypeImage:
		if input.AttachmentURL == "" {
			return errors.BadRequest("Image URL is required", nil)
		}
	case entity.MessageTypeItem:
		if len(input.Metadata) == 0 {
			return errors.BadRequest("Item data is required", nil)
		}
	}
	return nil
}

func messagePreview(message *entity.Message) string {
	switch message.Type {
	case entity.MessageTypeImage:
		return "[image]"
	case entity.MessageTypeItem:
		if title, ok := message.Metadata["title"].(string); ok && title != "" {
			return "[item] " + title
		}
		return "[item]"
	default:
		return message.Content
	}
}

func sortChats(chats []*entity.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		if chats[i].IsPinned != chats[j].IsPinned {
			return chats[i].IsPinned
		}
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
}
