package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-product-api/internal/domain"
)

// CreateToken records an issued access token.
func CreateToken(ctx context.Context, db *gorm.DB, tok *domain.AccessToken) error {
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Omit("User").Create(tok).Error
}

// GetActiveToken returns the token with the given ID if it exists and has not
// expired at now; otherwise ErrNotFound.
func GetActiveToken(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.AccessToken, error) {
	var tok domain.AccessToken
	err := db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, now).
		First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// TouchToken stamps last_used_at. A missing token is not an error.
func TouchToken(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", now).Error
}

// DeleteToken revokes a token. Revoking an unknown token is a no-op.
func DeleteToken(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.AccessToken{}).Error
}

// CountUserTokens returns how many tokens (active or expired) a user holds.
// Test helper: no request path calls it. Tests count the rows a login or a
// purge leaves behind.
func CountUserTokens(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.AccessToken{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// PurgeExpiredTokens removes tokens that expired at or before now.
func PurgeExpiredTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.AccessToken{})
	return res.RowsAffected, res.Error
}
