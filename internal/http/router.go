// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, failure interception,
// metrics, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - One place renders failures (middleware.Interceptor), after the logger
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-api/internal/authz"
	"github.com/tbourn/go-product-api/internal/config"
	"github.com/tbourn/go-product-api/internal/domain"
	"github.com/tbourn/go-product-api/internal/failure"
	"github.com/tbourn/go-product-api/internal/http/envelope"
	"github.com/tbourn/go-product-api/internal/http/handlers"
	"github.com/tbourn/go-product-api/internal/http/middleware"
	"github.com/tbourn/go-product-api/internal/repo"
	"github.com/tbourn/go-product-api/internal/security"
	"github.com/tbourn/go-product-api/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Services bundles the application services the routes call.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
}

// NewServices builds the services over db: JWT issuer and bcrypt hasher for
// auth, and a permission checker with the product policy for the catalogue.
func NewServices(db *gorm.DB, cfg config.Config) (Services, error) {
	issuer, err := security.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		return Services{}, err
	}
	auth := services.NewAuthService(db, issuer, security.NewBcryptHasher(cfg.Auth.BcryptCost))

	checker := authz.NewChecker(repo.Permissions{DB: db}).
		Register(authz.ProductKind, authz.ProductPolicy)
	products := services.NewProductService(db, checker)
	products.DefaultPerPage = cfg.DefaultPerPage
	products.IdempotencyTTL = cfg.IdempotencyTTL

	return Services{Auth: auth, Products: products}, nil
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), the failure
// interceptor, CORS and security headers, health, metrics and docs endpoints,
// and then mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Metrics
//  5. Gzip
//  6. Interceptor: panics and attached failures become envelopes
//  7. Body size limiter
//  8. CORS and Security headers
//
// The logger, metrics and gzip wrap the interceptor so that they observe (and
// compress) the rendered failure rather than the state before it.
//
// Per route: RequireAuth, then the idempotency validator on POST /products,
// then the rate limiter (which lets idempotent replays through).
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 5) Response compression (metrics scrapes stay uncompressed)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Failures and panics to envelopes
	r.Use(middleware.Interceptor(middleware.InterceptorOptions{
		Debug:    cfg.AppDebug,
		BasePath: cfg.APIBasePath,
	}))

	// 7) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 8) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks flow through the interceptor like any other failure.
	r.NoRoute(func(c *gin.Context) { middleware.Fail(c, failure.NotFound("")) })
	r.NoMethod(func(c *gin.Context) { middleware.Fail(c, failure.MethodNotAllowed()) })

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		env := envelope.OK(gin.H{"status": "ok"}, "Service is healthy")
		c.JSON(env.Code, env)
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc.Auth, svc.Products, handlers.Options{
		DefaultPerPage: cfg.DefaultPerPage,
		MaxPerPage:     cfg.MaxPerPage,
		Stats: func(ctx context.Context) (int64, *time.Time, error) {
			return repo.ProductsStats(ctx, db)
		},
	})

	limit := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{Scope: services.ScopeProductsCreate, MaxLen: 200},
		idempotencyLookup(db),
	)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/login", limit, h.Login)
		api.POST("/register", limit, h.Register)

		authed := api.Group("", middleware.RequireAuth(svc.Auth))
		authed.POST("/logout", limit, h.Logout)
		authed.GET("/user", limit, h.User)
		authed.POST("/refresh", limit, h.Refresh)
		authed.POST("/change-password", limit, h.ChangePassword)

		// Products
		authed.GET("/products", limit, h.ListProducts)
		authed.GET("/products/:id", limit, h.GetProduct)
		authed.POST("/products", idem, limit, h.CreateProduct)
		authed.PUT("/products/:id", limit, h.UpdateProduct)
		authed.PATCH("/products/:id", limit, h.UpdateProduct)
		authed.DELETE("/products/:id", limit, h.DeleteProduct)
	}
}

// idempotencyLookup reports whether a live idempotency record exists. Storage
// errors are returned so the validator can ignore them without flagging a
// replay.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, domain.IdempotencyKey{UserID: userID, Scope: scope, Key: key}, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}

// corsMiddleware returns the CORS handlers. With no allowlist every origin is
// accepted without credentials; otherwise only listed origins are echoed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderIdempotencyReplayed}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Reading past the cap fails
// with *http.MaxBytesError, which request binding reports as a 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
