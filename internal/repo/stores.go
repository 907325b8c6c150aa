package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-product-api/internal/domain"
)

// Users exposes the user functions of this package as a value, so services
// can depend on an interface and tests can substitute a stub.
type Users struct{}

func (Users) CreateUser(ctx context.Context, db *gorm.DB, name, email, hash string) (*domain.User, error) {
	return CreateUser(ctx, db, name, email, hash)
}

func (Users) GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return GetUserByID(ctx, db, id)
}

func (Users) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return GetUserByEmail(ctx, db, email)
}

func (Users) EmailTaken(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	return EmailTaken(ctx, db, email)
}

func (Users) UpdatePasswordHash(ctx context.Context, db *gorm.DB, userID, hash string) error {
	return UpdatePasswordHash(ctx, db, userID, hash)
}

func (Users) AssignRole(ctx context.Context, db *gorm.DB, userID, role string) error {
	return AssignRole(ctx, db, userID, role)
}

// Tokens exposes the access token functions as a value.
type Tokens struct{}

func (Tokens) CreateToken(ctx context.Context, db *gorm.DB, tok *domain.AccessToken) error {
	return CreateToken(ctx, db, tok)
}

func (Tokens) GetActiveToken(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.AccessToken, error) {
	return GetActiveToken(ctx, db, id, now)
}

func (Tokens) TouchToken(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	return TouchToken(ctx, db, id, now)
}

func (Tokens) DeleteToken(ctx context.Context, db *gorm.DB, id string) error {
	return DeleteToken(ctx, db, id)
}

// Products exposes the product functions as a value.
type Products struct{}

func (Products) CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) (*domain.Product, error) {
	return CreateProduct(ctx, db, p)
}

func (Products) GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	return GetProduct(ctx, db, id)
}

func (Products) CountProducts(ctx context.Context, db *gorm.DB) (int64, error) {
	return CountProducts(ctx, db)
}

func (Products) ListProductsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Product, error) {
	return ListProductsPage(ctx, db, offset, limit)
}

func (Products) UpdateProduct(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Product, error) {
	return UpdateProduct(ctx, db, id, fields)
}

func (Products) DeleteProduct(ctx context.Context, db *gorm.DB, id string) error {
	return DeleteProduct(ctx, db, id)
}

// Permissions adapts UserPermissions to authz.PermissionSource.
type Permissions struct {
	DB *gorm.DB
}

// UserPermissions implements authz.PermissionSource.
func (p Permissions) UserPermissions(ctx context.Context, userID string) ([]string, error) {
	return UserPermissions(ctx, p.DB, userID)
}
