// Package domain defines the persistence and wire models for restaurants,
// reviews, and pending offline writes. These types are mapped with GORM for
// the local replica database and carry the JSON tags used by the remote REST
// service, so a single type serves both boundaries.
package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Flag is a boolean that tolerates the remote service's loose encoding of
// favorite state: some backends return is_favorite as the JSON strings
// "true"/"false" instead of booleans. Flag unmarshals both and always
// marshals as a real boolean.
type Flag bool

// UnmarshalJSON accepts true/false as well as "true"/"false".
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	switch strings.ToLower(s) {
	case "true":
		*f = true
	case "false", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean value %q", string(data))
	}
	return nil
}

// MarshalJSON always emits a plain JSON boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// LatLng is a geographic coordinate pair as delivered by the remote service.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Restaurant is the local replica of a remotely owned restaurant entity.
//
// The remote service is canonical: rows are created on first successful
// fetch, fully overwritten on every later successful fetch, and mutated
// locally only by optimistic favorite toggles. Rows are never deleted;
// cache eviction is out of scope for the replica.
//
// OperatingHours and LatLng are stored as JSON columns because the replica's
// only read pattern is whole-entity loads; nothing queries inside them.
type Restaurant struct {
	ID             int               `json:"id"              gorm:"primaryKey"`
	Name           string            `json:"name"            gorm:"type:varchar(255);not null"`
	Neighborhood   string            `json:"neighborhood"    gorm:"type:varchar(128);index"`
	Photograph     string            `json:"photograph"      gorm:"type:varchar(128)"`
	Address        string            `json:"address"         gorm:"type:varchar(255)"`
	LatLng         LatLng            `json:"latlng"          gorm:"serializer:json"`
	CuisineType    string            `json:"cuisine_type"    gorm:"type:varchar(128);index"`
	OperatingHours map[string]string `json:"operating_hours" gorm:"serializer:json"`
	IsFavorite     Flag              `json:"is_favorite"`
	CreatedAt      time.Time         `json:"-"`
	UpdatedAt      time.Time         `json:"-"`
}

// TableName returns the database table name for Restaurant.
func (Restaurant) TableName() string { return "restaurants" }

// PageURL returns the relative URL of the restaurant's detail page, matching
// the route the rendering layer serves.
func (r Restaurant) PageURL() string {
	return fmt.Sprintf("./restaurant.html?id=%d", r.ID)
}

// ImageURL derives the 400px-wide responsive image path from the photograph
// identifier ("3.jpg" and "3" both map to "/img/3-400w.jpg").
func (r Restaurant) ImageURL() string {
	photo := strings.TrimSuffix(r.Photograph, ".jpg")
	return fmt.Sprintf("/img/%s-400w.jpg", photo)
}

// Review is a single user review as exchanged with the remote service.
// CreatedAt is epoch milliseconds on the wire, as produced by the PWA client.
type Review struct {
	ID           int64  `json:"id,omitempty"`
	RestaurantID int    `json:"restaurant_id"`
	Name         string `json:"name"`
	Rating       int    `json:"rating"`
	Comments     string `json:"comments"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt,omitempty"`
}

// FormattedDate renders CreatedAt as dd/mm/yyyy for display.
func (rv Review) FormattedDate() string {
	t := time.UnixMilli(rv.CreatedAt).UTC()
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), t.Year())
}

// Validate reports whether the review is acceptable for submission.
func (rv Review) Validate() error {
	if rv.RestaurantID <= 0 {
		return fmt.Errorf("restaurant_id must be positive, got %d", rv.RestaurantID)
	}
	if rv.Rating < 1 || rv.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rv.Rating)
	}
	if strings.TrimSpace(rv.Name) == "" {
		return fmt.Errorf("reviewer name must not be empty")
	}
	return nil
}

// ReviewRecord is the replica's grouped storage for reviews: one row per
// restaurant holding the ordered review list. The denormalization matches
// the dominant read pattern ("all reviews for restaurant X") and keeps the
// stale-while-revalidate overwrite a single-row operation.
type ReviewRecord struct {
	RestaurantID int      `gorm:"primaryKey"`
	Reviews      []Review `gorm:"serializer:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the database table name for ReviewRecord.
func (ReviewRecord) TableName() string { return "review_records" }

// PendingFavorite is a favorite-state edit made while offline, awaiting
// replay. At most one pending entry exists per restaurant: a later toggle
// replaces the earlier one (last write wins).
type PendingFavorite struct {
	RestaurantID int  `json:"restaurant_id"`
	IsFavorite   bool `json:"is_favorite"`
}

// KVEntry is a row of the lightweight key-string store that backs the
// offline queues. Values are opaque JSON blobs; encoding and decoding happen
// only at the queue repository boundary.
type KVEntry struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     string    `gorm:"type:TEXT NOT NULL"`
	UpdatedAt time.Time
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string { return "kv_entries" }
