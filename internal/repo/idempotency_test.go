package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-product-api/internal/domain"
)

func TestSaveAndGetIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()
	k := domain.IdempotencyKey{UserID: "u1", Scope: "products.store", Key: "k1"}

	if _, err := GetIdempotency(ctx, db, k, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("before save: err = %v; want ErrNotFound", err)
	}

	saved, err := SaveIdempotency(ctx, db, k, "p1", 201, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("SaveIdempotency: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("saved = %+v", saved)
	}

	got, err := GetIdempotency(ctx, db, k, now)
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ID != saved.ID || got.ResourceID != "p1" || got.Status != 201 {
		t.Fatalf("got = %+v", got)
	}

	// Keys are scoped by user and by operation.
	for _, other := range []domain.IdempotencyKey{
		{UserID: "u2", Scope: k.Scope, Key: k.Key},
		{UserID: k.UserID, Scope: "products.update", Key: k.Key},
		{UserID: k.UserID, Scope: k.Scope, Key: "k2"},
	} {
		if _, err := GetIdempotency(ctx, db, other, now); !errors.Is(err, ErrNotFound) {
			t.Errorf("%+v: err = %v; want ErrNotFound", other, err)
		}
	}

	if _, err := SaveIdempotency(ctx, db, k, "p2", 201, now.Add(time.Hour)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second save: err = %v; want ErrDuplicate", err)
	}
}

func TestGetIdempotency_BlankKey(t *testing.T) {
	// No table: a blank key must not reach the database.
	db := newTestDB(t)
	for _, k := range []domain.IdempotencyKey{
		{UserID: "u1", Scope: "  ", Key: "k1"},
		{UserID: "u1", Scope: "products.store"},
	} {
		if rec, err := GetIdempotency(context.Background(), db, k, time.Now()); rec != nil || !errors.Is(err, ErrNotFound) {
			t.Fatalf("%+v: (%v, %v); want ErrNotFound", k, rec, err)
		}
	}
}

func TestGetIdempotency_Expiry(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()
	k := domain.IdempotencyKey{UserID: "u1", Scope: "s", Key: "k"}

	if _, err := SaveIdempotency(ctx, db, k, "p1", 201, now); err != nil {
		t.Fatalf("SaveIdempotency: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, k, now.Add(-time.Second)); err != nil {
		t.Fatalf("before expiry: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, k, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("at expiry: err = %v; want ErrNotFound", err)
	}
}

func TestSaveIdempotency_StorageError(t *testing.T) {
	db := newTestDB(t)
	_, err := SaveIdempotency(context.Background(), db, domain.IdempotencyKey{UserID: "u", Scope: "s", Key: "k"}, "p", 201, time.Now())
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v; want a non-duplicate storage error", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	expiries := map[string]time.Time{
		"old":    now.Add(-time.Hour),
		"edge":   now,
		"recent": now.Add(-time.Minute),
		"live":   now.Add(time.Hour),
	}
	for key, exp := range expiries {
		if _, err := SaveIdempotency(ctx, db, domain.IdempotencyKey{UserID: "u1", Scope: "s", Key: key}, "p", 201, exp); err != nil {
			t.Fatalf("save %s: %v", key, err)
		}
	}

	n, err := PurgeExpiredIdempotency(ctx, db, now)
	if err != nil {
		t.Fatalf("PurgeExpiredIdempotency: %v", err)
	}
	if n != 3 {
		t.Fatalf("purged %d; want 3", n)
	}
	var left []domain.Idempotency
	if err := db.Find(&left).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(left) != 1 || left[0].Key != "live" {
		t.Fatalf("left = %+v", left)
	}
}
