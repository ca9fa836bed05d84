// Package repo implements the local replica layer backed by GORM.
//
// This file persists the offline write queues. Each queue lives under a
// well-known key in the lightweight key-string store, holding a JSON-encoded
// ordered list of pending payloads. Encoding and decoding happen only here;
// every caller above this file works with typed records.
package repo

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
)

// Well-known queue keys, shared with the original PWA's storage layout.
const (
	KeyOfflineReviews  = "offline-reviews"
	KeyOfflineFavorite = "offline-favorite"
)

// LoadPendingReviews returns the queued review submissions in enqueue order.
// A missing queue record decodes as an empty queue.
func LoadPendingReviews(ctx context.Context, db *gorm.DB) ([]domain.Review, error) {
	var out []domain.Review
	if err := loadQueue(ctx, db, KeyOfflineReviews, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SavePendingReviews overwrites the review queue with the given list,
// preserving its order.
func SavePendingReviews(ctx context.Context, db *gorm.DB, reviews []domain.Review) error {
	return saveQueue(ctx, db, KeyOfflineReviews, reviews)
}

// ClearPendingReviews removes the review queue record entirely.
func ClearPendingReviews(ctx context.Context, db *gorm.DB) error {
	return clearQueue(ctx, db, KeyOfflineReviews)
}

// LoadPendingFavorites returns the queued favorite edits. The invariant
// that at most one entry exists per restaurant is maintained by the writer
// (services.OfflineQueue), not re-checked here.
func LoadPendingFavorites(ctx context.Context, db *gorm.DB) ([]domain.PendingFavorite, error) {
	var out []domain.PendingFavorite
	if err := loadQueue(ctx, db, KeyOfflineFavorite, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SavePendingFavorites overwrites the favorite queue with the given list.
func SavePendingFavorites(ctx context.Context, db *gorm.DB, favorites []domain.PendingFavorite) error {
	return saveQueue(ctx, db, KeyOfflineFavorite, favorites)
}

// ClearPendingFavorites removes the favorite queue record entirely.
func ClearPendingFavorites(ctx context.Context, db *gorm.DB) error {
	return clearQueue(ctx, db, KeyOfflineFavorite)
}

// loadQueue decodes the JSON list stored under key into dst. A missing row
// leaves dst untouched (an empty queue).
func loadQueue(ctx context.Context, db *gorm.DB, key string, dst any) error {
	var entry domain.KVEntry
	err := db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(entry.Value), dst)
}

// saveQueue JSON-encodes src and upserts it under key. An empty list is
// stored as such rather than deleting the row; only a confirmed replay
// clears a queue.
func saveQueue(ctx context.Context, db *gorm.DB, key string, src any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	entry := domain.KVEntry{Key: key, Value: string(raw)}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
}

func clearQueue(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Delete(&domain.KVEntry{}, "key = ?", key).Error
}
