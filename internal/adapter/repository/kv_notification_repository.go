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

const notificationNamespace = "notifications"

type kvNotificationRepository struct {
	store *storage.Store
}

func NewKVNotificationRepository(store *storage.Store) repository.NotificationRepository {
	return &kvNotificationRepository{store: store}
}

func (r *kvNotificationRepository) load(ctx context.Context, userID string) ([]*entity.Notification, error) {
	var notifications []*entity.Notification
	if _, err := r.store.Get(ctx, notificationNamespace, userID, &notifications); err != nil {
		return nil, errors.Internal("Failed to load notifications", err)
	}
	return notifications, nil
}

func (r *kvNotificationRepository) save(ctx context.Context, userID string, notifications []*entity.Notification) error {
	if err := r.store.Set(ctx, notificationNamespace, userID, notifications); err != nil {
		return errors.Internal("Failed to save notifications", err)
	}
	return nil
}

func (r *kvNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	notifications, err := r.load(ctx, notification.ToUserID)
	if err != nil {
		return err
	}

	notifications = append(notifications, notification)
	return r.save(ctx, notification.ToUserID, notifications)
}

func (r *kvNotificationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error) {
	return r.load(ctx, userID)
}

func (r *kvNotificationRepository) Update(ctx context.Context, notification *entity.Notification) error {
	notifications, err := r.load(ctx, notification.ToUserID)
	if err != nil {
		return err
	}

	for i, n := range notifications {
		if n.ID == notification.ID {
			notifications[i] = notification
			return r.save(ctx, notification.ToUserID, notifications)
		}
	}
	return errors.NotFound("Notification", nil)
}

func (r *kvNotificationRepository) Delete(ctx context.Context, userID, notificationID string) error {
	notifications, err := r.load(ctx, userID)
	if err != nil {
		return err
	}

	kept := notifications[:0]
	for _, n := range notifications {
		if n.ID != notificationID {
			kept = append(kept, n)
		}
	}
	return r.save(ctx, userID, kept)
}

func (r *kvNotificationRepository) FindByActorAndTarget(ctx context.Context, userID, actorID, targetID, notificationType string) (*entity.Notification, error) {
	notifications, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, n := range notifications {
		if n.From.ID == actorID && n.TargetID == targetID && n.Type == notificationType {
			return n, nil
		}
	}
	return nil, errors.NotFound("Notification", nil)
}

func (r *kvNotificationRepository) DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	notifications, err := r.load(ctx, userID)
	if err != nil {
		return 0, err
	}

	kept := notifications[:0]
	removed := 0
	for _, n := range notifications {
		if n.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, n)
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, r.save(ctx, userID, kept)
}
