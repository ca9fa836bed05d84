package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateIdempotency_ThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "key-1", 42, 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ReviewID != 42 || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "key-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ReviewID != 42 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestGetIdempotency_ExpiredIsNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "key-2", 1, 201, time.Millisecond); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}

	_, err := GetIdempotency(ctx, db, "key-2", time.Now().UTC().Add(time.Second))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetIdempotency_EmptyKey(t *testing.T) {
	db := newTestDB(t)

	_, err := GetIdempotency(context.Background(), db, "  ", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateIdempotency_DuplicateKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "key-3", 1, 201, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := CreateIdempotency(ctx, db, "key-3", 2, 201, time.Hour)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}
