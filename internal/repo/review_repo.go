// Package repo implements the local replica layer backed by GORM.
//
// This file manages the grouped review records: one row per restaurant
// holding the ordered list of reviews for it.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
)

// GetReviews returns the reviews cached locally for a restaurant. A missing
// record is a cache miss, reported as ErrNotFound; an empty list on an
// existing record means "fetched before, restaurant has no reviews".
func GetReviews(ctx context.Context, db *gorm.DB, restaurantID int) ([]domain.Review, error) {
	var rec domain.ReviewRecord
	err := db.WithContext(ctx).First(&rec, "restaurant_id = ?", restaurantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.Reviews, nil
}

// ReplaceReviews overwrites the grouped record for a restaurant with a
// freshly fetched review list. The whole list is the unit of storage, so a
// successful fetch always supersedes everything cached before it.
func ReplaceReviews(ctx context.Context, db *gorm.DB, restaurantID int, reviews []domain.Review) error {
	rec := domain.ReviewRecord{
		RestaurantID: restaurantID,
		Reviews:      reviews,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

// AppendReview adds one review to the end of its restaurant's grouped
// record, creating the record when the restaurant has no cached reviews yet.
// Used both for the authoritative server response after a successful submit
// and for the optimistic local apply of an offline submission.
func AppendReview(ctx context.Context, db *gorm.DB, review domain.Review) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec domain.ReviewRecord
		err := tx.First(&rec, "restaurant_id = ?", review.RestaurantID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = domain.ReviewRecord{RestaurantID: review.RestaurantID}
		case err != nil:
			return err
		}
		rec.Reviews = append(rec.Reviews, review)
		return tx.
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&rec).Error
	})
}
