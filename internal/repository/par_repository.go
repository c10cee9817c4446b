// backend-go/internal/repository/par_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// HistoryRepository reads approved inventory counts.
type HistoryRepository interface {
	// LoadApprovedCounts returns up to limit approved counts for the scope, newest first,
	// with their item observations attached.
	LoadApprovedCounts(ctx context.Context, scope domain.Scope, limit int) ([]domain.ApprovedCount, error)
}

// GuideRepository reads and writes PAR guides.
type GuideRepository interface {
	// ListGuides returns guides for the restaurant ordered by creation time. An empty
	// listID returns every guide of the restaurant.
	ListGuides(ctx context.Context, restaurantID, listID string) ([]domain.Guide, error)
	GetGuide(ctx context.Context, guideID string) (*domain.Guide, error)
	LoadGuideItems(ctx context.Context, guideIDs []string) ([]domain.GuideItem, error)
	// FindGuideItem matches item_name case-insensitively. Returns nil, nil when absent.
	FindGuideItem(ctx context.Context, guideID, itemName string) (*domain.GuideItem, error)
	// UpsertGuideItem inserts when item.ID is empty, otherwise updates par_level only.
	UpsertGuideItem(ctx context.Context, guideID string, item domain.GuideItem) (domain.GuideItem, error)
	CreateGuide(ctx context.Context, scope domain.Scope, name string) (string, error)
}

// NotificationRepository backs the notification gate.
type NotificationRepository interface {
	NotificationExistsToday(ctx context.Context, restaurantID, notificationType, day string) (bool, error)
	// InsertNotification stores the dedup record and one row per recipient atomically.
	// It returns domain.ErrAlreadyNotified when the record for that day already exists.
	InsertNotification(ctx context.Context, batch domain.NotificationBatch) error
	ResolveRecipients(ctx context.Context, restaurantID string, mode domain.RecipientMode, custom []string) ([]domain.Recipient, error)
	GetNotificationSettings(ctx context.Context, restaurantID string) (*domain.NotificationSettings, error)
}

// ParStore is the full data-access surface of the PAR suggestion engine.
type ParStore interface {
	HistoryRepository
	GuideRepository
	NotificationRepository
}
