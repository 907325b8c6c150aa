// Package handlers exposes the REST endpoints of the product API.
//
// Handlers are transport-thin: they validate input, resolve the caller's
// Identity, call application services and wrap results in the response
// envelope. They never render failures themselves; any failure is attached to
// the gin context and rendered once by the interceptor middleware.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/domain"
	"github.com/tbourn/go-product-api/internal/failure"
	"github.com/tbourn/go-product-api/internal/http/middleware"
	"github.com/tbourn/go-product-api/internal/services"
	"github.com/tbourn/go-product-api/internal/validation"
)

//
// Service contracts (context-aware)
//

// AuthService defines the account and token operations used by the auth
// endpoints. Implementations must honor ctx for cancellation.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.User, services.IssuedToken, error)
	Logout(ctx context.Context, id domain.Identity) error
	Refresh(ctx context.Context, id domain.Identity) (services.IssuedToken, error)
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	ChangePassword(ctx context.Context, id domain.Identity, current, next string) error
	// EmailTaken and PasswordMatches back the storage-dependent validation rules.
	EmailTaken(ctx context.Context, email string) (bool, error)
	PasswordMatches(ctx context.Context, userID, password string) (bool, error)
}

// ProductService defines the catalogue operations. Every call carries the
// caller's Identity; authorization happens inside the service.
type ProductService interface {
	ListPage(ctx context.Context, id domain.Identity, page, perPage int) ([]domain.Product, int64, error)
	Get(ctx context.Context, id domain.Identity, productID string) (*domain.Product, error)
	Create(ctx context.Context, id domain.Identity, in services.ProductInput, idemKey string) (*domain.Product, bool, error)
	Update(ctx context.Context, id domain.Identity, productID string, in services.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id domain.Identity, productID string) error
}

// StatsFunc reports the live product count and the latest update time. It
// backs the weak ETag of the product listing.
type StatsFunc func(ctx context.Context) (count int64, maxUpdatedAt *time.Time, err error)

//
// Handler wiring
//

// Options tunes listing behavior.
type Options struct {
	// DefaultPerPage applies when per_page is absent or unparsable.
	DefaultPerPage int
	// MaxPerPage is the upper bound for per_page.
	MaxPerPage int
	// Stats enables ETag / If-None-Match on GET /products when set.
	Stats StatsFunc
}

// Handlers groups the auth and product endpoints.
type Handlers struct {
	auth     AuthService
	products ProductService
	v        *validation.Validator
	opts     Options
}

// New constructs Handlers bound to the given services.
func New(auth AuthService, products ProductService, opts Options) *Handlers {
	if opts.DefaultPerPage < 1 {
		opts.DefaultPerPage = 15
	}
	if opts.MaxPerPage < opts.DefaultPerPage {
		opts.MaxPerPage = 100
	}
	return &Handlers{auth: auth, products: products, v: validation.New(), opts: opts}
}

// identity returns the caller resolved by middleware.RequireAuth. Routes that
// use it are always behind RequireAuth; a missing identity fails as
// unauthenticated rather than running anonymously.
func identity(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID() == "" {
		abort(c, failure.Unauthenticated(""))
		return domain.Identity{}, false
	}
	return id, true
}
