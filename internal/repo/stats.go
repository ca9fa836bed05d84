// Package repo implements the local replica layer backed by GORM. This file
// provides small aggregate queries used by the facade's status endpoint and
// by the queue-depth metrics. Each function is context-aware and safe to
// call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
)

// ReplicaStats returns aggregate metadata for the restaurant replica: the
// number of cached rows and the greatest UpdatedAt among them. When the
// replica is empty, count is 0 and lastRefreshed is nil.
func ReplicaStats(ctx context.Context, db *gorm.DB) (count int64, lastRefreshed *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Restaurant{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// QueueDepths returns the number of pending entries in each offline queue.
func QueueDepths(ctx context.Context, db *gorm.DB) (reviews int, favorites int, err error) {
	pendingReviews, err := LoadPendingReviews(ctx, db)
	if err != nil {
		return 0, 0, err
	}
	pendingFavorites, err := LoadPendingFavorites(ctx, db)
	if err != nil {
		return 0, 0, err
	}
	return len(pendingReviews), len(pendingFavorites), nil
}
