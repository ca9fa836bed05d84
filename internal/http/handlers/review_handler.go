// Review HTTP handlers.
//
//   - GET  /restaurants/{id}/reviews  (list reviews for a restaurant)
//   - POST /reviews                   (submit a review, offline-tolerant)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// submission exists for that key, the handler returns the recorded review id
// and sets `Idempotency-Replayed: true` instead of submitting again. Offline
// replays from flaky clients therefore never create duplicate reviews.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
	"github.com/tkaralis/go-restaurant-sync/internal/http/middleware"
	"github.com/tkaralis/go-restaurant-sync/internal/repo"
	"github.com/tkaralis/go-restaurant-sync/internal/services"
)

// ReviewReplayResponse is returned when an Idempotency-Key matches a prior
// successful submission.
type ReviewReplayResponse struct {
	ReviewID int64 `json:"review_id"`
	// Pending reports whether the original submission was queued rather than
	// confirmed by the remote service.
	Pending bool `json:"pending"`
}

// ListReviews returns all reviews for a restaurant.
func (h *Handlers) ListReviews(c *gin.Context) {
	id, okID := restaurantID(c)
	if !okID {
		return
	}
	items, err := h.svc.Reviews(c.Request.Context(), id)
	if err != nil {
		failFromSync(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// PostReview submits a review. Confirmed submissions return 201 with the
// server's authoritative copy; submissions staged for later replay return
// 202 with the caller's copy and `pending: true`.
func (h *Handlers) PostReview(c *gin.Context) {
	ctx := c.Request.Context()

	var review domain.Review
	if err := c.ShouldBindJSON(&review); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	// Idempotency (replay path): read the validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.store != nil {
		if db, err := h.store.DB(); err == nil {
			if rec, err := repo.GetIdempotency(ctx, db, idemKey, time.Now().UTC()); err == nil && rec != nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, ReviewReplayResponse{
					ReviewID: rec.ReviewID,
					Pending:  rec.Status == http.StatusAccepted,
				})
				return
			}
		}
	}

	res, err := h.svc.AddReview(ctx, review)
	if err != nil {
		if failValidation(c, err) {
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
		return
	}

	status := http.StatusCreated
	if res.Pending {
		status = http.StatusAccepted
	}

	// Idempotency (store path): best effort.
	if idemKey != "" && h.store != nil {
		if db, err := h.store.DB(); err == nil {
			_, _ = repo.CreateIdempotency(ctx, db, idemKey, res.Review.ID, status, h.idemTTL)
		}
	}

	ok(c, status, res)
}

// failValidation writes a 400 for validation failures and reports whether it
// handled the error.
func failValidation(c *gin.Context, err error) bool {
	if errors.Is(err, services.ErrInvalidReview) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return true
	}
	return false
}
