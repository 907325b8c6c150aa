// Package services – ProductService
//
// ProductService implements the product catalogue operations. Every method
// takes the caller's Identity explicitly and consults the authorization
// checker before acting. Methods that address a single product look it up
// first, so a missing product is reported as not found even to callers who
// would also be denied.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-product-api/internal/authz"
	"github.com/tbourn/go-product-api/internal/domain"
	"github.com/tbourn/go-product-api/internal/failure"
	"github.com/tbourn/go-product-api/internal/repo"
	"github.com/tbourn/go-product-api/internal/utils"
)

// ProductRepo is the persistence contract ProductService needs.
type ProductRepo interface {
	CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error)
	CountProducts(ctx context.Context, db *gorm.DB) (int64, error)
	ListProductsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Product, error)
	DeleteProduct(ctx context.Context, db *gorm.DB, id string) error
}

// Authorizer answers permission questions for a user.
type Authorizer interface {
	Can(ctx context.Context, userID, kind string, action authz.Action, resource any) (bool, error)
}

// ProductInput carries validated product fields. Nil fields are left
// untouched on update; on create, Name and Price are always set.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
}

// ProductService implements product CRUD with authorization.
type ProductService struct {
	DB    *gorm.DB
	Repo  ProductRepo
	Authz Authorizer

	// DefaultPerPage applies when a list request carries no usable page size.
	DefaultPerPage int
	// IdempotencyTTL bounds how long a create may be replayed by key.
	IdempotencyTTL time.Duration
}

// NewProductService constructs a ProductService backed by the GORM repository.
func NewProductService(db *gorm.DB, a Authorizer) *ProductService {
	return &ProductService{
		DB:             db,
		Repo:           repo.Products{},
		Authz:          a,
		DefaultPerPage: 15,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// ListPage returns one page of products and the total count.
func (s *ProductService) ListPage(ctx context.Context, id domain.Identity, page, perPage int) ([]domain.Product, int64, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", id.UserID()),
			attribute.Int("page", page),
			attribute.Int("per_page", perPage),
		),
	)
	defer span.End()

	if err := s.authorize(ctx, id, authz.ViewAny, nil, MsgCannotViewAny); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = s.DefaultPerPage
	}
	if perPage <= 0 {
		perPage = 15
	}

	total, err := s.Repo.CountProducts(ctx, s.DB)
	if err != nil {
		return nil, 0, failure.Unhandled(pkgerrors.Wrap(err, "count products"))
	}
	if total == 0 {
		return []domain.Product{}, 0, nil
	}
	items, err := s.Repo.ListProductsPage(ctx, s.DB, utils.Window{Page: page, PerPage: perPage}.Offset(), perPage)
	if err != nil {
		return nil, 0, failure.Unhandled(pkgerrors.Wrap(err, "list products"))
	}
	return items, total, nil
}

// Get returns a product the caller may view.
func (s *ProductService) Get(ctx context.Context, id domain.Identity, productID string) (*domain.Product, error) {
	ctx, span := s.span(ctx, "Get", id, productID)
	defer span.End()

	p, err := s.lookup(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, id, authz.View, p, MsgCannotView); err != nil {
		return nil, err
	}
	return p, nil
}

// Create persists a new product. When idemKey is non-empty and the caller
// already created a product with that key, the stored product is returned and
// replayed is true; nothing new is written.
func (s *ProductService) Create(ctx context.Context, id domain.Identity, in ProductInput, idemKey string) (p *domain.Product, replayed bool, err error) {
	ctx, span := s.span(ctx, "Create", id, "")
	defer span.End()

	if err := s.authorize(ctx, id, authz.Create, nil, MsgCannotCreate); err != nil {
		return nil, false, err
	}

	key := domain.IdempotencyKey{UserID: id.UserID(), Scope: ScopeProductsCreate, Key: idemKey}
	if idemKey != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, key, time.Now().UTC())
		if err == nil {
			prev, err := s.Repo.GetProduct(ctx, s.DB, rec.ResourceID)
			if err == nil {
				span.SetAttributes(attribute.Bool("idempotent.replay", true))
				return prev, true, nil
			}
			// The product was deleted since; create it afresh.
		}
	}

	p = &domain.Product{}
	applyInput(p, in)
	p.Name = normalizeName(p.Name)
	created, err := s.Repo.CreateProduct(ctx, s.DB, p)
	if err != nil {
		return nil, false, failure.Unhandled(pkgerrors.Wrap(err, "create product"))
	}

	if idemKey != "" {
		expires := time.Now().UTC().Add(s.IdempotencyTTL)
		if _, err := repo.SaveIdempotency(ctx, s.DB, key, created.ID, http.StatusCreated, expires); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Warn().Err(err).Str("product_id", created.ID).Msg("store idempotency record failed")
		}
	}
	return created, false, nil
}

// Update applies the non-nil fields of in to a product the caller may edit.
func (s *ProductService) Update(ctx context.Context, id domain.Identity, productID string, in ProductInput) (*domain.Product, error) {
	ctx, span := s.span(ctx, "Update", id, productID)
	defer span.End()

	p, err := s.lookup(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, id, authz.Update, p, MsgCannotUpdate); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = normalizeName(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	if in.Stock != nil {
		fields["stock"] = *in.Stock
	}
	out, err := s.Repo.UpdateProduct(ctx, s.DB, productID, fields)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, failure.NotFound(MsgProductNotFound)
	}
	if err != nil {
		return nil, failure.Unhandled(pkgerrors.Wrap(err, "update product"))
	}
	return out, nil
}

// Delete soft-deletes a product the caller may delete.
func (s *ProductService) Delete(ctx context.Context, id domain.Identity, productID string) error {
	ctx, span := s.span(ctx, "Delete", id, productID)
	defer span.End()

	p, err := s.lookup(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, id, authz.Delete, p, MsgCannotDelete); err != nil {
		return err
	}
	err = s.Repo.DeleteProduct(ctx, s.DB, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return failure.NotFound(MsgProductNotFound)
	}
	if err != nil {
		return failure.Unhandled(pkgerrors.Wrap(err, "delete product"))
	}
	return nil
}

func (s *ProductService) lookup(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.Repo.GetProduct(ctx, s.DB, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, failure.NotFound(MsgProductNotFound)
	}
	if err != nil {
		return nil, failure.Unhandled(pkgerrors.Wrap(err, "load product"))
	}
	return p, nil
}

func (s *ProductService) authorize(ctx context.Context, id domain.Identity, action authz.Action, resource any, denied string) error {
	ok, err := s.Authz.Can(ctx, id.UserID(), authz.ProductKind, action, resource)
	if err != nil {
		return failure.Unhandled(pkgerrors.Wrap(err, "load permissions"))
	}
	if !ok {
		return failure.Forbidden(denied)
	}
	return nil
}

func (s *ProductService) span(ctx context.Context, name string, id domain.Identity, productID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("user.id", id.UserID())}
	if productID != "" {
		attrs = append(attrs, attribute.String("product.id", productID))
	}
	return otel.Tracer("services/ProductService").Start(ctx, name, trace.WithAttributes(attrs...))
}

func applyInput(p *domain.Product, in ProductInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
}

// normalizeName trims surrounding space and composes the name to NFC so that
// visually identical names are stored identically.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
