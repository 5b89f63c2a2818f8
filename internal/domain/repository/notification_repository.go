package repository

import (
	"context"
	"time"

	"campusmarket/internal/domain/entity"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error)
	Update(ctx context.Context, notification *entity.Notification) error
	Delete(ctx context.Context, userID, notificationID string) error

	// FindByActorAndTarget locates the notification a given actor produced on
	// a given target, used to keep like toggles in sync.
	FindByActorAndTarget(ctx context.Context, userID, actorID, targetID, notificationType string) (*entity.Notification, error)

	// DeleteOlderThan prunes notifications created before the cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error)
}
