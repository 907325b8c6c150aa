// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Product
// model.
//
// Functions:
//
//   - CreateProduct(ctx, db, p) -> *domain.Product, error
//   - GetProduct(ctx, db, id) -> *domain.Product, error
//   - CountProducts(ctx, db) -> int64, error
//   - ListProductsPage(ctx, db, offset, limit) -> []domain.Product, error
//   - UpdateProduct(ctx, db, id, fields) -> *domain.Product, error
//   - DeleteProduct(ctx, db, id) -> error (soft delete)
//
// Soft-deleted products are invisible to every function here.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-api/internal/domain"
)

// CreateProduct inserts p, assigning a UUID when p.ID is empty.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct fetches a product by ID, or ErrNotFound.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CountProducts returns the number of live products.
func CountProducts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Product{}).Count(&total).Error
	return total, err
}

// ListProductsPage returns a slice of products ordered by creation time
// descending, ties broken by ID so pages are stable.
func ListProductsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateProduct applies fields (column -> value) to a product and returns the
// reloaded row. An empty fields map only reloads. It returns ErrNotFound when
// the product does not exist.
func UpdateProduct(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Product, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		res := db.WithContext(ctx).
			Model(&domain.Product{}).
			Where("id = ?", id).
			Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return GetProduct(ctx, db, id)
}

// DeleteProduct soft-deletes a product. It returns ErrNotFound when no live
// product matched.
func DeleteProduct(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
