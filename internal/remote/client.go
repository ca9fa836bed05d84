// Package remote talks to the restaurant-review REST backend.
//
// The client is deliberately thin: every operation is a single attempt with
// no caching and no retry. Retry policy belongs to the sync layer, which
// defers failed writes to the offline queue rather than retrying inline.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
)

// Client is a REST accessor for restaurants, reviews, and favorite toggles.
// Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient constructs a Client for the given base URL (no trailing slash).
// A nil httpClient gets a default with the given timeout; the timeout
// surfaces as ErrNetwork like any other transport failure.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, http: httpClient, log: log}
}

// ListRestaurants fetches the full restaurant set.
func (c *Client) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	var out []domain.Restaurant
	if err := c.do(ctx, http.MethodGet, "/restaurants", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReviews fetches all reviews for one restaurant.
func (c *Client) ListReviews(ctx context.Context, restaurantID int) ([]domain.Review, error) {
	var out []domain.Review
	path := "/reviews?restaurant_id=" + strconv.Itoa(restaurantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitReview posts a new review and returns the server's authoritative
// copy, including any server-assigned fields.
func (c *Client) SubmitReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	var out domain.Review
	if err := c.do(ctx, http.MethodPost, "/reviews", review, &out); err != nil {
		return domain.Review{}, err
	}
	return out, nil
}

// SetFavorite updates a restaurant's favorite state and returns the updated
// restaurant as the server sees it.
func (c *Client) SetFavorite(ctx context.Context, restaurantID int, favorite bool) (domain.Restaurant, error) {
	var out domain.Restaurant
	path := fmt.Sprintf("/restaurants/%d?is_favorite=%t", restaurantID, favorite)
	if err := c.do(ctx, http.MethodPut, path, nil, &out); err != nil {
		return domain.Restaurant{}, err
	}
	return out, nil
}

// do issues one request and decodes a 2xx JSON body into out. Non-2xx
// responses become *ServiceError without reading the body; transport
// failures wrap ErrNetwork.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("remote call failed")
		return &ServiceError{Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Ping probes connectivity by requesting the restaurant listing headers.
// Used by the connectivity signal; any completed HTTP exchange counts as
// online, regardless of status.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/restaurants", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
