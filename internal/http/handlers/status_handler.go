// Sync status handler.
//
//   - GET /sync/status  (replica freshness and offline queue depths)
//
// The rendering layer uses this to show an offline banner and a pending-edits
// badge; operators use it to spot a replica that has stopped refreshing.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkaralis/go-restaurant-sync/internal/repo"
)

// SyncStatusResponse describes the state of the local replica and the
// offline queues.
type SyncStatusResponse struct {
	// CachedRestaurants is the number of restaurant rows in the replica.
	CachedRestaurants int64 `json:"cached_restaurants"`
	// LastRefreshed is when the replica last absorbed a fetch; null when the
	// replica is empty.
	LastRefreshed *time.Time `json:"last_refreshed"`
	// PendingReviews is the number of reviews awaiting replay.
	PendingReviews int `json:"pending_reviews"`
	// PendingFavorites is the number of favorite edits awaiting replay.
	PendingFavorites int `json:"pending_favorites"`
}

// SyncStatus reports replica freshness and queue depths.
func (h *Handlers) SyncStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if h.store == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "local replica unavailable")
		return
	}
	db, err := h.store.DB()
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "local replica unavailable")
		return
	}

	count, last, err := repo.ReplicaStats(ctx, db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	reviews, favorites, err := repo.QueueDepths(ctx, db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, SyncStatusResponse{
		CachedRestaurants: count,
		LastRefreshed:     last,
		PendingReviews:    reviews,
		PendingFavorites:  favorites,
	})
}
