package repo

import (
	"context"
	"testing"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
)

func TestReplicaStats_EmptyReplica(t *testing.T) {
	db := newTestDB(t)

	count, last, err := ReplicaStats(context.Background(), db)
	if err != nil {
		t.Fatalf("ReplicaStats: %v", err)
	}
	if count != 0 || last != nil {
		t.Fatalf("expected empty stats, got count=%d last=%v", count, last)
	}
}

func TestReplicaStats_CountsAndLastRefreshed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := UpsertRestaurants(ctx, db, []domain.Restaurant{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	count, last, err := ReplicaStats(ctx, db)
	if err != nil {
		t.Fatalf("ReplicaStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count: got %d", count)
	}
	if last == nil || last.IsZero() {
		t.Fatalf("lastRefreshed: got %v", last)
	}
}
