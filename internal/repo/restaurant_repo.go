// Package repo implements the local replica layer backed by GORM.
//
// This file provides repository helpers for the restaurant replica. All
// functions are free functions over *gorm.DB in keeping with the rest of the
// package; the Store decides when the handle exists.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
//
// It aliases gorm.ErrRecordNotFound so callers can use errors.Is without
// importing GORM.
var ErrNotFound = gorm.ErrRecordNotFound

// ListRestaurants returns every restaurant in the replica. Order is storage
// order, not any business ordering.
func ListRestaurants(ctx context.Context, db *gorm.DB) ([]domain.Restaurant, error) {
	var out []domain.Restaurant
	if err := db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetRestaurant fetches a single restaurant by id, or ErrNotFound.
func GetRestaurant(ctx context.Context, db *gorm.DB, id int) (*domain.Restaurant, error) {
	var r domain.Restaurant
	err := db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertRestaurant inserts or fully overwrites one restaurant by primary key.
// Idempotent: re-upserting the same row is a no-op apart from UpdatedAt.
func UpsertRestaurant(ctx context.Context, db *gorm.DB, r domain.Restaurant) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&r).Error
}

// UpsertRestaurants overwrites the replica with a fetched restaurant set.
// Rows absent from the set are left in place: the replica never deletes, it
// only converges toward the remote on each successful fetch.
func UpsertRestaurants(ctx context.Context, db *gorm.DB, restaurants []domain.Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&restaurants).Error
}

// SetRestaurantFavorite flips the is_favorite column for one restaurant.
// Used for the optimistic local apply of a favorite toggle; the full-row
// overwrite happens later when the remote confirms. Returns ErrNotFound when
// the restaurant is not in the replica yet.
func SetRestaurantFavorite(ctx context.Context, db *gorm.DB, id int, favorite bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Restaurant{}).
		Where("id = ?", id).
		Update("is_favorite", favorite)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
