// Restaurant HTTP handlers.
//
// This file exposes REST endpoints for the synchronized restaurant set:
//   - GET /restaurants                 (list, with optional cuisine/neighborhood filters)
//   - GET /restaurants/{id}            (single restaurant)
//   - GET /neighborhoods               (distinct neighborhoods)
//   - GET /cuisines                    (distinct cuisine types)
//   - PUT /restaurants/{id}/favorite   (toggle favorite, offline-tolerant)
//
// Handlers are transport-thin: they validate input, call the sync
// coordinator, and translate results into HTTP responses. Whether a response
// was served from the local replica or the network is invisible here.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
	"github.com/tkaralis/go-restaurant-sync/internal/remote"
	"github.com/tkaralis/go-restaurant-sync/internal/repo"
	"github.com/tkaralis/go-restaurant-sync/internal/services"
)

//
// Service contract (context-aware)
//

// SyncAPI defines the coordinator operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SyncAPI interface {
	// ByCuisineAndNeighborhood returns restaurants matching both filters;
	// "all" on either dimension means no restriction.
	ByCuisineAndNeighborhood(ctx context.Context, cuisine, neighborhood string) ([]domain.Restaurant, error)
	// RestaurantByID returns one restaurant from the synchronized set.
	RestaurantByID(ctx context.Context, id int) (domain.Restaurant, error)
	// Neighborhoods returns the distinct neighborhoods in first-occurrence order.
	Neighborhoods(ctx context.Context) ([]string, error)
	// Cuisines returns the distinct cuisine types in first-occurrence order.
	Cuisines(ctx context.Context) ([]string, error)
	// Reviews returns all reviews for a restaurant.
	Reviews(ctx context.Context, restaurantID int) ([]domain.Review, error)
	// AddReview submits or queues a review.
	AddReview(ctx context.Context, review domain.Review) (services.ReviewResult, error)
	// SetFavorite records or queues a favorite toggle.
	SetFavorite(ctx context.Context, restaurantID int, favorite bool) (services.FavoriteResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for restaurants, reviews, and favorites.
// It depends on the abstract SyncAPI to keep transport concerns separate from
// synchronization logic; the store handle is used only for idempotency
// bookkeeping on review submissions.
type Handlers struct {
	svc     SyncAPI
	store   *repo.Store
	idemTTL time.Duration
}

// New constructs a Handlers instance bound to the given coordinator.
// store may be nil, which disables idempotency replay detection.
func New(svc SyncAPI, store *repo.Store, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{svc: svc, store: store, idemTTL: idemTTL}
}

// restaurantID parses the :id path parameter, failing the request with a 400
// when it is not a positive integer. The boolean reports success.
func restaurantID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "restaurant id must be a positive integer")
		return 0, false
	}
	return id, true
}

// failFromSync maps coordinator errors to HTTP responses.
func failFromSync(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRestaurantNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "restaurant not found")
	case remote.IsUnavailable(err):
		fail(c, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable,
			"no cached data and the remote service is unreachable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
	}
}

//
// Handlers
//

// ListRestaurants returns the restaurant set, optionally filtered by the
// `cuisine` and `neighborhood` query parameters. Omitted filters default to
// "all" (no restriction), mirroring the select-box wire values.
func (h *Handlers) ListRestaurants(c *gin.Context) {
	cuisine := filterParam(c, "cuisine")
	neighborhood := filterParam(c, "neighborhood")

	items, err := h.svc.ByCuisineAndNeighborhood(c.Request.Context(), cuisine, neighborhood)
	if err != nil {
		failFromSync(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetRestaurant returns a single restaurant by id.
func (h *Handlers) GetRestaurant(c *gin.Context) {
	id, okID := restaurantID(c)
	if !okID {
		return
	}
	r, err := h.svc.RestaurantByID(c.Request.Context(), id)
	if err != nil {
		failFromSync(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListNeighborhoods returns the distinct neighborhoods of the synchronized set.
func (h *Handlers) ListNeighborhoods(c *gin.Context) {
	items, err := h.svc.Neighborhoods(c.Request.Context())
	if err != nil {
		failFromSync(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// ListCuisines returns the distinct cuisine types of the synchronized set.
func (h *Handlers) ListCuisines(c *gin.Context) {
	items, err := h.svc.Cuisines(c.Request.Context())
	if err != nil {
		failFromSync(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// SetFavorite toggles a restaurant's favorite flag. The new state is read
// from the `is_favorite` query parameter ("true"/"false"). Offline toggles
// succeed with `pending: true` in the body.
func (h *Handlers) SetFavorite(c *gin.Context) {
	id, okID := restaurantID(c)
	if !okID {
		return
	}
	raw := strings.TrimSpace(c.Query("is_favorite"))
	fav, err := strconv.ParseBool(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "is_favorite must be true or false")
		return
	}

	res, err := h.svc.SetFavorite(c.Request.Context(), id, fav)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// filterParam reads a filter query parameter, normalizing absent or blank
// values to the wildcard.
func filterParam(c *gin.Context, name string) string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return services.Wildcard
	}
	return v
}
