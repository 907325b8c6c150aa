package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-api/internal/domain"
)

// GetIdempotency returns the record for k that is still live at now, or
// ErrNotFound. A blank scope or key never matches.
func GetIdempotency(ctx context.Context, db *gorm.DB, k domain.IdempotencyKey, now time.Time) (*domain.Idempotency, error) {
	if k.Blank() {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where(&domain.Idempotency{UserID: k.UserID, Scope: k.Scope, Key: k.Key}, "UserID", "Scope", "Key").
		Where("expires_at > ?", now).
		Take(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

// SaveIdempotency records that the operation keyed by k produced resourceID
// with the given status, replayable until expiresAt. A second save of the
// same key yields ErrDuplicate.
func SaveIdempotency(ctx context.Context, db *gorm.DB, k domain.IdempotencyKey, resourceID string, status int, expiresAt time.Time) (*domain.Idempotency, error) {
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     k.UserID,
		Scope:      k.Scope,
		Key:        k.Key,
		ResourceID: resourceID,
		Status:     status,
		ExpiresAt:  expiresAt.UTC(),
	}
	err := db.WithContext(ctx).Create(rec).Error
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredIdempotency deletes records whose expiry is at or before now and
// returns how many were removed.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
