// Package services implements the offline-first synchronization layer.
//
// This file provides the typed offline queue: the durable staging area for
// writes made while the remote service is unreachable. Entries survive a
// process restart and are destroyed only after the replay trigger confirms
// successful resubmission.
package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
	"github.com/tkaralis/go-restaurant-sync/internal/repo"
)

// OfflineQueue stages pending writes in the replica's key-string store.
//
// Reviews are append-only: submission order is preserved. Favorites are
// upsert-by-restaurant: a later toggle for the same restaurant replaces the
// earlier pending entry instead of appending.
type OfflineQueue struct {
	store *repo.Store
	log   zerolog.Logger

	// mu makes every load-modify-save cycle atomic. Handlers enqueue while
	// the replay trigger acknowledges, so without it a write landing between
	// a replay's snapshot and its ack would be silently dropped.
	mu sync.Mutex
}

// NewOfflineQueue constructs an OfflineQueue over the given store.
func NewOfflineQueue(store *repo.Store, log zerolog.Logger) *OfflineQueue {
	return &OfflineQueue{store: store, log: log}
}

// EnqueueReview appends a review to the pending queue.
func (q *OfflineQueue) EnqueueReview(ctx context.Context, review domain.Review) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	db, err := q.store.DB()
	if err != nil {
		return err
	}
	pending, err := repo.LoadPendingReviews(ctx, db)
	if err != nil {
		return err
	}
	pending = append(pending, review)
	if err := repo.SavePendingReviews(ctx, db, pending); err != nil {
		return err
	}
	queueDepth.WithLabelValues("reviews").Set(float64(len(pending)))
	q.log.Info().Int("restaurant_id", review.RestaurantID).Int("depth", len(pending)).
		Msg("review queued for replay")
	return nil
}

// UpsertFavorite records a pending favorite edit, replacing any earlier
// pending entry for the same restaurant (last write wins).
func (q *OfflineQueue) UpsertFavorite(ctx context.Context, restaurantID int, favorite bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	db, err := q.store.DB()
	if err != nil {
		return err
	}
	pending, err := repo.LoadPendingFavorites(ctx, db)
	if err != nil {
		return err
	}
	replaced := false
	for i := range pending {
		if pending[i].RestaurantID == restaurantID {
			pending[i].IsFavorite = favorite
			replaced = true
			break
		}
	}
	if !replaced {
		pending = append(pending, domain.PendingFavorite{RestaurantID: restaurantID, IsFavorite: favorite})
	}
	if err := repo.SavePendingFavorites(ctx, db, pending); err != nil {
		return err
	}
	queueDepth.WithLabelValues("favorites").Set(float64(len(pending)))
	q.log.Info().Int("restaurant_id", restaurantID).Bool("is_favorite", favorite).
		Msg("favorite edit queued for replay")
	return nil
}

// PendingReviews returns the queued reviews without removing them. Removal
// happens only through AckReviews after a confirmed replay.
func (q *OfflineQueue) PendingReviews(ctx context.Context) ([]domain.Review, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	db, err := q.store.DB()
	if err != nil {
		return nil, err
	}
	return repo.LoadPendingReviews(ctx, db)
}

// PendingFavorites returns the queued favorite edits without removing them.
func (q *OfflineQueue) PendingFavorites(ctx context.Context) ([]domain.PendingFavorite, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	db, err := q.store.DB()
	if err != nil {
		return nil, err
	}
	return repo.LoadPendingFavorites(ctx, db)
}

// AckReviews removes a successfully replayed batch from the review queue.
// Only the drained entries are dropped: enqueues are append-only and acks
// run one at a time, so the batch is always the head of the stored queue,
// and anything appended after the replay's snapshot stays queued.
func (q *OfflineQueue) AckReviews(ctx context.Context, drained []domain.Review) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	db, err := q.store.DB()
	if err != nil {
		return err
	}
	pending, err := repo.LoadPendingReviews(ctx, db)
	if err != nil {
		return err
	}
	var remaining []domain.Review
	if len(drained) < len(pending) {
		remaining = pending[len(drained):]
	}
	if len(remaining) == 0 {
		if err := repo.ClearPendingReviews(ctx, db); err != nil {
			return err
		}
	} else if err := repo.SavePendingReviews(ctx, db, remaining); err != nil {
		return err
	}
	queueDepth.WithLabelValues("reviews").Set(float64(len(remaining)))
	return nil
}

// AckFavorites removes successfully replayed favorite edits. An entry is
// dropped only if it still matches the drained snapshot exactly; a toggle
// upserted during the replay changed the pending value, so the replayed one
// is stale and the newer edit stays queued.
func (q *OfflineQueue) AckFavorites(ctx context.Context, drained []domain.PendingFavorite) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	db, err := q.store.DB()
	if err != nil {
		return err
	}
	pending, err := repo.LoadPendingFavorites(ctx, db)
	if err != nil {
		return err
	}
	var remaining []domain.PendingFavorite
	for _, fav := range pending {
		if !containsFavorite(drained, fav) {
			remaining = append(remaining, fav)
		}
	}
	if len(remaining) == 0 {
		if err := repo.ClearPendingFavorites(ctx, db); err != nil {
			return err
		}
	} else if err := repo.SavePendingFavorites(ctx, db, remaining); err != nil {
		return err
	}
	queueDepth.WithLabelValues("favorites").Set(float64(len(remaining)))
	return nil
}

func containsFavorite(set []domain.PendingFavorite, fav domain.PendingFavorite) bool {
	for _, s := range set {
		if s.RestaurantID == fav.RestaurantID && s.IsFavorite == fav.IsFavorite {
			return true
		}
	}
	return false
}
