package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"campusmarket/internal/domain/entity"
	"campusmarket/internal/domain/repository"
	"campusmarket/internal/infrastructure/rest"
	"campusmarket/pkg/errors"
	"campusmarket/pkg/logger"
)

// Notifications older than this are eligible for cleanup.
const notificationRetention = 30 * 24 * time.Hour

type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	restClient       *rest.Client
}

func NewNotificationUseCase(notificationRepo repository.NotificationRepository, restClient *rest.Client) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		restClient:       restClient,
	}
}

func (uc *NotificationUseCase) CreateLikePostNotification(ctx context.Context, from entity.Actor, toUserID, postID, postContent string) (*entity.Notification, error) {
	return uc.create(ctx, entity.NotificationLikePost, from, toUserID, postID, "post", postContent, "")
}

func (uc *NotificationUseCase) CreateLikeCommentNotification(ctx context.Context, from entity.Actor, toUserID, commentID, commentContent string) (*entity.Notification, error) {
	return uc.create(ctx, entity.NotificationLikeComment, from, toUserID, commentID, "comment", commentContent, "")
}

func (uc *NotificationUseCase) CreateLikeItemNotification(ctx context.Context, from entity.Actor, toUserID, itemID, itemTitle string) (*entity.Notification, error) {
	return uc.create(ctx, entity.NotificationLikeItem, from, toUserID, itemID, "item", itemTitle, "")
}

func (uc *NotificationUseCase) CreateCommentPostNotification(ctx context.Context, from entity.Actor, toUserID, postID, commentContent, postContent string) (*entity.Notification, error) {
	return uc.create(ctx, entity.NotificationCommentPost, from, toUserID, postID, "post", commentContent, postContent)
}

func (uc *NotificationUseCase) CreateCommentItemNotification(ctx context.Context, from entity.Actor, toUserID, itemID, commentContent, itemTitle string) (*entity.Notification, error) {
	return uc.create(ctx, entity.NotificationCommentItem, from, toUserID, itemID, "item", commentContent, itemTitle)
}

func (uc *NotificationUseCase) CreateReplyCommentNotification(ctx context.Context, from entity.Actor, toUserID, commentID, replyContent, originalComment string) (*entity.Notification, error) {
	return uc.create(ctx, entity.NotificationReplyComment, from, toUserID, commentID, "comment", replyContent, originalComment)
}

func (uc *NotificationUseCase) CreateSystemNotification(ctx context.Context, toUserID, content string) (*entity.Notification, error) {
	return uc.create(ctx, entity.NotificationSystem, entity.Actor{}, toUserID, "", "system", content, "")
}

// ToggleLikeNotification keeps the notification list in sync with a like
// toggle: liking creates at most one notification for the actor/target pair,
// unliking removes it again. Returns the notification on like, nil on unlike.
func (uc *NotificationUseCase) ToggleLikeNotification(ctx context.Context, liked bool, notificationType string, from entity.Actor, toUserID, targetID, targetContent string) (*entity.Notification, error) {
	if from.ID == toUserID {
		return nil, nil
	}

	existing, err := uc.notificationRepo.FindByActorAndTarget(ctx, toUserID, from.ID, targetID, notificationType)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	if liked {
		if existing != nil {
			return existing, nil
		}
		targetType := "post"
		switch notificationType {
		case entity.NotificationLikeComment:
			targetType = "comment"
		case entity.NotificationLikeItem:
			targetType = "item"
		}
		return uc.create(ctx, notificationType, from, toUserID, targetID, targetType, targetContent, "")
	}

	if existing == nil {
		return nil, nil
	}
	if err := uc.notificationRepo.Delete(ctx, toUserID, existing.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (uc *NotificationUseCase) ListNotifications(ctx context.Context, userID, family string) ([]*entity.Notification, error) {
	all, err := uc.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var matched []*entity.Notification
	for _, n := range all {
		if n.InFamily(family) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

func (uc *NotificationUseCase) GetUnreadCount(ctx context.Context, userID, family string) (int, error) {
	all, err := uc.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, n := range all {
		if !n.IsRead && n.InFamily(family) {
			count++
		}
	}
	return count, nil
}

// MarkAllAsRead flips every unread notification in the family to read.
// One-way: nothing ever becomes unread again.
func (uc *NotificationUseCase) MarkAllAsRead(ctx context.Context, userID, family string) error {
	all, err := uc.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, n := range all {
		if n.IsRead || !n.InFamily(family) {
			continue
		}
		n.IsRead = true
		if err := uc.notificationRepo.Update(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (uc *NotificationUseCase) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	all, err := uc.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, n := range all {
		if n.ID != notificationID {
			continue
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		return uc.notificationRepo.Update(ctx, n)
	}
	return errors.NotFound("Notification", nil)
}

// CleanupExpired removes notifications past the retention window and returns
// how many were dropped.
func (uc *NotificationUseCase) CleanupExpired(ctx context.Context, userID string) (int, error) {
	cutoff := time.Now().Add(-notificationRetention)
	removed, err := uc.notificationRepo.DeleteOlderThan(ctx, userID, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Debug("Pruned %d expired notifications for user %s", removed, userID)
	}
	return removed, nil
}

// Refresh pulls the user's notifications from the API and merges them into
// the local store. Locally known notifications win so read state set on this
// device is never reverted by the server copy.
func (uc *NotificationUseCase) Refresh(ctx context.Context, userID string) (int, error) {
	if uc.restClient == nil {
		return 0, errors.Internal("API client not configured", nil)
	}

	var remote []*entity.Notification
	if err := uc.restClient.Get(ctx, fmt.Sprintf("/users/%s/notifications", userID), &remote); err != nil {
		return 0, err
	}

	local, err := uc.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(local))
	for _, n := range local {
		known[n.ID] = struct{}{}
	}

	added := 0
	for _, n := range remote {
		if _, ok := known[n.ID]; ok {
			continue
		}
		if n.From.ID != "" && n.From.ID == n.ToUserID {
			continue
		}
		n.ToUserID = userID
		if err := uc.notificationRepo.Create(ctx, n); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (uc *NotificationUseCase) create(ctx context.Context, notificationType string, from entity.Actor, toUserID, targetID, targetType, targetContent, originalContent string) (*entity.Notification, error) {
	if toUserID == "" {
		return nil, errors.BadRequest("Recipient is required", nil)
	}
	// Users never get notified about their own activity.
	if from.ID != "" && from.ID == toUserID {
		return nil, nil
	}

	notification := &entity.Notification{
		ID:              uuid.New().String(),
		Type:            notificationType,
		From:            from,
		ToUserID:        toUserID,
		TargetID:        targetID,
		TargetType:      targetType,
		TargetContent:   targetContent,
		OriginalContent: originalContent,
		CreatedAt:       time.Now(),
	}
	if err := uc.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}
