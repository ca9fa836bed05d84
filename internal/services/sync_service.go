// Package services implements the offline-first synchronization layer.
//
// This file contains the sync coordinator: the single source of truth the
// rendering layer calls into. It hides whether data came from the local
// replica or the network, applying a read-through cache with
// stale-while-revalidate refresh on the read path and optimistic
// write-behind queuing on the write path.
//
// Design notes:
//   - A non-empty local read returns immediately; the refresh runs as an
//     explicitly fire-and-forget task whose failure is logged, never
//     surfaced (the caller already has a result).
//   - A returned snapshot may be stale by exactly one refresh cycle; only a
//     later successful fetch resolves staleness, never inference.
//   - Local store failures degrade to network-only mode; they never fail an
//     operation that the network could still serve.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
	"github.com/tkaralis/go-restaurant-sync/internal/remote"
	"github.com/tkaralis/go-restaurant-sync/internal/repo"
)

// RemoteAPI is the contract the coordinator requires from the REST client.
type RemoteAPI interface {
	// ListRestaurants fetches the full restaurant set.
	ListRestaurants(ctx context.Context) ([]domain.Restaurant, error)

	// ListReviews fetches all reviews for one restaurant.
	ListReviews(ctx context.Context, restaurantID int) ([]domain.Review, error)

	// SubmitReview posts a review and returns the server's copy.
	SubmitReview(ctx context.Context, review domain.Review) (domain.Review, error)

	// SetFavorite updates favorite state and returns the updated restaurant.
	SetFavorite(ctx context.Context, restaurantID int, favorite bool) (domain.Restaurant, error)
}

// Wildcard is the filter value meaning "no restriction", as sent by the
// rendering layer's select boxes.
const Wildcard = "all"

// ReviewResult reports the outcome of an AddReview call.
type ReviewResult struct {
	// Review is the stored review: the server's authoritative copy when the
	// submission succeeded, the caller's copy when it was queued.
	Review domain.Review `json:"review"`
	// Pending is true when the write was staged for later replay instead of
	// confirmed by the remote service.
	Pending bool `json:"pending"`
	// Attempted is false when a connectivity check reported offline and the
	// network call was skipped entirely.
	Attempted bool `json:"attempted"`
}

// FavoriteResult reports the outcome of a SetFavorite call.
type FavoriteResult struct {
	RestaurantID int  `json:"restaurant_id"`
	IsFavorite   bool `json:"is_favorite"`
	Pending      bool `json:"pending"`
	Attempted    bool `json:"attempted"`
}

// SyncService coordinates the local replica, the remote client, and the
// offline queue. All dependencies are injected; the service holds no global
// state.
type SyncService struct {
	store  *repo.Store
	remote RemoteAPI
	queue  *OfflineQueue
	online func() bool
	log    zerolog.Logger

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time

	refreshWG sync.WaitGroup
}

// NewSyncService constructs the coordinator. online may be nil, in which
// case every write attempts the network first.
func NewSyncService(store *repo.Store, remoteAPI RemoteAPI, queue *OfflineQueue, online func() bool, log zerolog.Logger) *SyncService {
	return &SyncService{
		store:  store,
		remote: remoteAPI,
		queue:  queue,
		online: online,
		log:    log,
		now:    time.Now,
	}
}

// Queue exposes the offline queue, primarily for the replay trigger.
func (s *SyncService) Queue() *OfflineQueue { return s.queue }

// Remote exposes the remote client, primarily for the replay trigger.
func (s *SyncService) Remote() RemoteAPI { return s.remote }

// WaitRefresh blocks until every in-flight background refresh has settled.
// Used by graceful shutdown and by tests that need deterministic ordering.
func (s *SyncService) WaitRefresh() { s.refreshWG.Wait() }

// ---- read path ----

// Restaurants returns the restaurant set. A populated replica is served
// immediately and refreshed in the background; an empty or unavailable
// replica falls through to a foreground fetch whose result is persisted for
// next time.
func (s *SyncService) Restaurants(ctx context.Context) ([]domain.Restaurant, error) {
	db, err := s.store.DB()
	if err != nil {
		// Replica unavailable: degrade to network-only.
		s.log.Warn().Err(err).Msg("local store unavailable, serving network-only")
		return s.remote.ListRestaurants(ctx)
	}

	local, err := repo.ListRestaurants(ctx, db)
	if err != nil {
		s.log.Warn().Err(err).Msg("replica read failed, treating as cache miss")
		local = nil
	}

	if len(local) == 0 {
		fetched, err := s.remote.ListRestaurants(ctx)
		if err != nil {
			return nil, err
		}
		syncReads.WithLabelValues("restaurants", "network").Inc()
		if err := repo.UpsertRestaurants(ctx, db, fetched); err != nil {
			s.log.Error().Err(err).Msg("failed to persist fetched restaurants")
		}
		return fetched, nil
	}

	syncReads.WithLabelValues("restaurants", "cache").Inc()
	s.goRefresh(ctx, "restaurants", func(bg context.Context) error {
		fetched, err := s.remote.ListRestaurants(bg)
		if err != nil {
			return err
		}
		return repo.UpsertRestaurants(bg, db, fetched)
	})
	return local, nil
}

// RestaurantByID returns one restaurant from the synchronized set, or
// ErrRestaurantNotFound when the id is absent.
func (s *SyncService) RestaurantByID(ctx context.Context, id int) (domain.Restaurant, error) {
	restaurants, err := s.Restaurants(ctx)
	if err != nil {
		return domain.Restaurant{}, err
	}
	for _, r := range restaurants {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Restaurant{}, fmt.Errorf("id %d: %w", id, ErrRestaurantNotFound)
}

// Reviews returns all reviews for a restaurant, newest state the replica
// has, with the same read-through/revalidate shape as Restaurants. An empty
// cached list for a previously fetched restaurant is a valid hit, not a miss.
func (s *SyncService) Reviews(ctx context.Context, restaurantID int) ([]domain.Review, error) {
	db, err := s.store.DB()
	if err != nil {
		s.log.Warn().Err(err).Msg("local store unavailable, serving network-only")
		return s.remote.ListReviews(ctx, restaurantID)
	}

	local, err := repo.GetReviews(ctx, db, restaurantID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.log.Warn().Err(err).Int("restaurant_id", restaurantID).
				Msg("replica read failed, treating as cache miss")
		}
		fetched, ferr := s.remote.ListReviews(ctx, restaurantID)
		if ferr != nil {
			return nil, ferr
		}
		syncReads.WithLabelValues("reviews", "network").Inc()
		if perr := repo.ReplaceReviews(ctx, db, restaurantID, fetched); perr != nil {
			s.log.Error().Err(perr).Int("restaurant_id", restaurantID).
				Msg("failed to persist fetched reviews")
		}
		return fetched, nil
	}

	syncReads.WithLabelValues("reviews", "cache").Inc()
	s.goRefresh(ctx, "reviews", func(bg context.Context) error {
		fetched, err := s.remote.ListReviews(bg, restaurantID)
		if err != nil {
			return err
		}
		return repo.ReplaceReviews(bg, db, restaurantID, fetched)
	})
	return local, nil
}

// goRefresh runs fn as a tracked fire-and-forget refresh. The background
// context survives the caller's request but inherits its values for tracing.
func (s *SyncService) goRefresh(ctx context.Context, entity string, fn func(context.Context) error) {
	bg := context.WithoutCancel(ctx)
	s.refreshWG.Add(1)
	go func() {
		defer s.refreshWG.Done()
		if err := fn(bg); err != nil {
			syncRefreshes.WithLabelValues(entity, "error").Inc()
			s.log.Warn().Err(err).Str("entity", entity).Msg("background refresh failed")
			return
		}
		syncRefreshes.WithLabelValues(entity, "ok").Inc()
	}()
}

// ---- derived reads (pure post-processing, no extra I/O) ----

// ByCuisineAndNeighborhood filters the restaurant set by both dimensions.
// The value "all" on either dimension means no restriction.
func (s *SyncService) ByCuisineAndNeighborhood(ctx context.Context, cuisine, neighborhood string) ([]domain.Restaurant, error) {
	restaurants, err := s.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	out := restaurants[:0:0]
	for _, r := range restaurants {
		if cuisine != Wildcard && r.CuisineType != cuisine {
			continue
		}
		if neighborhood != Wildcard && r.Neighborhood != neighborhood {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ByCuisine filters the restaurant set by cuisine type.
func (s *SyncService) ByCuisine(ctx context.Context, cuisine string) ([]domain.Restaurant, error) {
	return s.ByCuisineAndNeighborhood(ctx, cuisine, Wildcard)
}

// ByNeighborhood filters the restaurant set by neighborhood.
func (s *SyncService) ByNeighborhood(ctx context.Context, neighborhood string) ([]domain.Restaurant, error) {
	return s.ByCuisineAndNeighborhood(ctx, Wildcard, neighborhood)
}

// Neighborhoods returns the distinct neighborhoods in first-occurrence order.
func (s *SyncService) Neighborhoods(ctx context.Context) ([]string, error) {
	restaurants, err := s.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(restaurants, func(r domain.Restaurant) string { return r.Neighborhood }), nil
}

// Cuisines returns the distinct cuisine types in first-occurrence order.
func (s *SyncService) Cuisines(ctx context.Context) ([]string, error) {
	restaurants, err := s.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(restaurants, func(r domain.Restaurant) string { return r.CuisineType }), nil
}

func distinct(restaurants []domain.Restaurant, key func(domain.Restaurant) string) []string {
	seen := make(map[string]struct{}, len(restaurants))
	out := make([]string, 0, len(restaurants))
	for _, r := range restaurants {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// ---- write path ----

// AddReview submits a review. When the remote confirms, the authoritative
// server copy is appended to the replica. When the remote is unreachable
// (or the connectivity check says offline and the attempt is skipped), the
// caller's copy is applied optimistically and queued for replay; the caller
// still gets a success, with Pending set.
func (s *SyncService) AddReview(ctx context.Context, review domain.Review) (ReviewResult, error) {
	if err := review.Validate(); err != nil {
		return ReviewResult{}, fmt.Errorf("%w: %v", ErrInvalidReview, err)
	}
	if review.CreatedAt == 0 {
		review.CreatedAt = s.now().UnixMilli()
	}

	attempted := false
	if s.isOnline() {
		attempted = true
		created, err := s.remote.SubmitReview(ctx, review)
		if err == nil {
			s.persistReview(ctx, created)
			syncWrites.WithLabelValues("review", "sent").Inc()
			return ReviewResult{Review: created, Attempted: true}, nil
		}
		if !remote.IsUnavailable(err) {
			return ReviewResult{}, err
		}
		s.log.Warn().Err(err).Int("restaurant_id", review.RestaurantID).
			Msg("review submission failed, queueing for replay")
	}

	// Offline path: optimistic local apply, then durable queue entry.
	s.persistReview(ctx, review)
	if err := s.queue.EnqueueReview(ctx, review); err != nil {
		return ReviewResult{}, fmt.Errorf("queue review: %w", err)
	}
	syncWrites.WithLabelValues("review", "queued").Inc()
	return ReviewResult{Review: review, Pending: true, Attempted: attempted}, nil
}

// SetFavorite records a favorite toggle. Online success persists the
// server's restaurant row; otherwise the flag is flipped optimistically and
// the edit is queued with last-write-wins semantics per restaurant.
func (s *SyncService) SetFavorite(ctx context.Context, restaurantID int, favorite bool) (FavoriteResult, error) {
	attempted := false
	if s.isOnline() {
		attempted = true
		updated, err := s.remote.SetFavorite(ctx, restaurantID, favorite)
		if err == nil {
			s.persistRestaurant(ctx, updated)
			syncWrites.WithLabelValues("favorite", "sent").Inc()
			return FavoriteResult{RestaurantID: restaurantID, IsFavorite: favorite, Attempted: true}, nil
		}
		if !remote.IsUnavailable(err) {
			return FavoriteResult{}, err
		}
		s.log.Warn().Err(err).Int("restaurant_id", restaurantID).
			Msg("favorite update failed, queueing for replay")
	}

	s.applyFavoriteLocally(ctx, restaurantID, favorite)
	if err := s.queue.UpsertFavorite(ctx, restaurantID, favorite); err != nil {
		return FavoriteResult{}, fmt.Errorf("queue favorite: %w", err)
	}
	syncWrites.WithLabelValues("favorite", "queued").Inc()
	return FavoriteResult{RestaurantID: restaurantID, IsFavorite: favorite, Pending: true, Attempted: attempted}, nil
}

func (s *SyncService) isOnline() bool {
	if s.online == nil {
		return true
	}
	return s.online()
}

// persistReview appends a review to the replica, logging rather than failing
// on store errors: the write's fate is decided by the remote/queue, not by
// replica bookkeeping.
func (s *SyncService) persistReview(ctx context.Context, review domain.Review) {
	db, err := s.store.DB()
	if err != nil {
		s.log.Error().Err(err).Msg("store unavailable, review not cached locally")
		return
	}
	if err := repo.AppendReview(ctx, db, review); err != nil {
		s.log.Error().Err(err).Int("restaurant_id", review.RestaurantID).
			Msg("failed to cache review locally")
	}
}

func (s *SyncService) persistRestaurant(ctx context.Context, r domain.Restaurant) {
	db, err := s.store.DB()
	if err != nil {
		s.log.Error().Err(err).Msg("store unavailable, restaurant not cached locally")
		return
	}
	if err := repo.UpsertRestaurant(ctx, db, r); err != nil {
		s.log.Error().Err(err).Int("restaurant_id", r.ID).
			Msg("failed to cache restaurant locally")
	}
}

func (s *SyncService) applyFavoriteLocally(ctx context.Context, restaurantID int, favorite bool) {
	db, err := s.store.DB()
	if err != nil {
		s.log.Error().Err(err).Msg("store unavailable, favorite not applied locally")
		return
	}
	err = repo.SetRestaurantFavorite(ctx, db, restaurantID, favorite)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		s.log.Error().Err(err).Int("restaurant_id", restaurantID).
			Msg("failed to apply favorite locally")
	}
}
