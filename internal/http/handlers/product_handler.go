// Product HTTP handlers.
//
// This file exposes the catalogue endpoints:
//   - GET    /products        (paginated, ETag support)
//   - GET    /products/{id}
//   - POST   /products        (Idempotency-Key support)
//   - PUT    /products/{id}   (PATCH is routed here too)
//   - DELETE /products/{id}
//
// Authorization and lookup order live in services.ProductService; these
// handlers validate the payload first and map results into envelopes.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/domain"
	"github.com/tbourn/go-product-api/internal/http/envelope"
	"github.com/tbourn/go-product-api/internal/http/middleware"
	"github.com/tbourn/go-product-api/internal/services"
	"github.com/tbourn/go-product-api/internal/utils"
)

// Success messages of the product endpoints.
const (
	MsgProductsRetrieved = "Products retrieved successfully"
	MsgProductRetrieved  = "Product retrieved successfully"
	MsgProductCreated    = "Product created successfully"
	MsgProductUpdated    = "Product updated successfully"
	MsgProductDeleted    = "Product deleted successfully"
)

// HeaderIdempotencyReplayed marks a create that returned a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

//
// DTOs
//

// StoreProductRequest is the JSON payload of POST /products.
type StoreProductRequest struct {
	Name        *string  `json:"name" validate:"required,filled,max=255" example:"Widget"`
	Description *string  `json:"description" validate:"omitnil,max=2000" example:"A small widget"`
	Price       *float64 `json:"price" validate:"required,gte=0" example:"9.99"`
	Stock       *int     `json:"stock" validate:"omitnil,gte=0" example:"10"`
}

// UpdateProductRequest is the JSON payload of PUT/PATCH /products/{id}. Absent
// fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitnil,filled,max=255" example:"Widget v2"`
	Description *string  `json:"description" validate:"omitnil,max=2000" example:"Revised"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0" example:"12.5"`
	Stock       *int     `json:"stock" validate:"omitnil,gte=0" example:"4"`
}

func (r StoreProductRequest) input() services.ProductInput {
	return services.ProductInput{Name: r.Name, Description: r.Description, Price: r.Price, Stock: r.Stock}
}

func (r UpdateProductRequest) input() services.ProductInput {
	return services.ProductInput{Name: r.Name, Description: r.Description, Price: r.Price, Stock: r.Stock}
}

// ProductPage documents the data member of GET /products.
type ProductPage struct {
	Items      []domain.Product    `json:"items"`
	Pagination envelope.Pagination `json:"pagination"`
}

//
// Helpers
//

// pagination parses page and per_page; see utils.ParseWindow.
func (h *Handlers) pagination(c *gin.Context) (page, perPage int) {
	w := utils.ParseWindow(c.Query("page"), c.Query("per_page"), h.opts.DefaultPerPage, h.opts.MaxPerPage)
	return w.Page, w.PerPage
}

//
// Handlers
//

// ListProducts godoc
// @ID          listProducts
// @Summary     List products (paginated)
// @Description Returns a page of products. Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Products
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"products:1:15:42:1700000000000000000\")
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       per_page       query   int     false  "Items per page"  minimum(1) maximum(100) default(15)
// @Success     200  {object}  envelope.Envelope{data=handlers.ProductPage}
// @Header      200  {string}  ETag  "Weak ETag for the current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  envelope.Envelope
// @Failure     403  {object}  envelope.Envelope  "You do not have permission to view products"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	ctx := c.Request.Context()
	page, perPage := h.pagination(c)

	// The ETag is computed before authorization, so it is only sent after
	// the service has allowed the listing.
	var etag string
	if h.opts.Stats != nil {
		if count, maxTS, err := h.opts.Stats(ctx); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag = fmt.Sprintf(`W/"products:%d:%d:%d:%d"`, page, perPage, count, ts)
		}
	}

	items, total, err := h.products.ListPage(ctx, id, page, perPage)
	if err != nil {
		abort(c, err)
		return
	}

	if etag != "" {
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			notModified(c)
			return
		}
	}
	ok(c, http.StatusOK, envelope.NewPage(items, page, perPage, total), MsgProductsRetrieved)
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a product
// @Tags        Products
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Product ID (UUID)"  format(uuid)
// @Success     200  {object}  envelope.Envelope{data=domain.Product}
// @Failure     401  {object}  envelope.Envelope
// @Failure     403  {object}  envelope.Envelope  "You do not have permission to view this product"
// @Failure     404  {object}  envelope.Envelope  "Product not found"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	p, err := h.products.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	ok(c, http.StatusOK, p, MsgProductRetrieved)
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Create a product
// @Description Creates a product. With an Idempotency-Key, repeating the request returns the product created first.
// @Tags        Products
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                         false  "Idempotency key"  example(3f6c1d2a-create-widget)
// @Param       body             body    handlers.StoreProductRequest  true   "Product"
// @Success     201  {object}  envelope.Envelope{data=domain.Product}
// @Header      201  {string}  Idempotency-Replayed  "true when a stored result was returned"
// @Failure     401  {object}  envelope.Envelope
// @Failure     403  {object}  envelope.Envelope  "You do not have permission to create products"
// @Failure     422  {object}  envelope.Envelope{data=envelope.ValidationData}
// @Router      /products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	var req StoreProductRequest
	if err := h.v.Bind(c, &req); err != nil {
		abort(c, err)
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	p, replayed, err := h.products.Create(c.Request.Context(), id, req.input(), key)
	if err != nil {
		abort(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
	}
	created(c, p, MsgProductCreated)
}

// UpdateProduct godoc
// @ID          updateProduct
// @Summary     Update a product
// @Description Updates the provided fields of a product. PATCH behaves the same.
// @Tags        Products
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                          true  "Product ID (UUID)"  format(uuid)
// @Param       body  body      handlers.UpdateProductRequest  true  "Fields to change"
// @Success     200   {object}  envelope.Envelope{data=domain.Product}
// @Failure     401   {object}  envelope.Envelope
// @Failure     403   {object}  envelope.Envelope  "You do not have permission to update this product"
// @Failure     404   {object}  envelope.Envelope  "Product not found"
// @Failure     422   {object}  envelope.Envelope{data=envelope.ValidationData}
// @Router      /products/{id} [put]
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	var req UpdateProductRequest
	if err := h.v.Bind(c, &req); err != nil {
		abort(c, err)
		return
	}

	p, err := h.products.Update(c.Request.Context(), id, c.Param("id"), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	ok(c, http.StatusOK, p, MsgProductUpdated)
}

// DeleteProduct godoc
// @ID          deleteProduct
// @Summary     Delete a product
// @Tags        Products
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Product ID (UUID)"  format(uuid)
// @Success     200  {object}  envelope.Envelope
// @Failure     401  {object}  envelope.Envelope
// @Failure     403  {object}  envelope.Envelope  "You do not have permission to delete this product"
// @Failure     404  {object}  envelope.Envelope  "Product not found"
// @Router      /products/{id} [delete]
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	ok(c, http.StatusOK, nil, MsgProductDeleted)
}
