package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIdempotencyHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected no key by default")
	}
	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("non-string key must read as absent")
	}
	if IsReplay(c) {
		t.Fatalf("replay must default to false")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("replay flag not read")
	}

	if got := userIDFromCtx(c); got != "" {
		t.Fatalf("anonymous user id = %q", got)
	}
	c.Set(userIDKey, "u1")
	if got := userIDFromCtx(c); got != "u1" {
		t.Fatalf("user id = %q", got)
	}
}

func TestIdempotencyValidator_NoHeaderIsNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	called := false
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{Scope: "products.store"},
		func(context.Context, string, string, string, time.Time) (bool, error) {
			called = true
			return true, nil
		}))
	r.POST("/api/products", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key must be absent without the header")
		}
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/products", nil))
	if w.Code != http.StatusCreated || called {
		t.Fatalf("code=%d lookupCalled=%v", w.Code, called)
	}
}

func TestIdempotencyValidator_InvalidKeyIsValidationFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]IdempotencyOptions{
		"too-long-key": {MaxLen: 5},
		"abc123":       {Pattern: regexp.MustCompile(`^[0-9]+$`)},
		"has space":    {},
	}
	for key, opts := range cases {
		r := gin.New()
		r.Use(Interceptor(InterceptorOptions{BasePath: "/api"}))
		r.Use(IdempotencyValidator(opts, nil))
		r.POST("/api/products", func(c *gin.Context) {
			t.Fatalf("handler must not run for key %q", key)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("key %q: status = %d; want 422", key, w.Code)
		}
		var body struct {
			Data struct {
				Errors map[string][]string `json:"errors"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got := body.Data.Errors["idempotency_key"]; len(got) != 1 || got[0] != MsgInvalidIdempotencyKey {
			t.Fatalf("key %q: errors = %v", key, body.Data.Errors)
		}
	}
}

func TestIdempotencyValidator_LookupPerUserAndScope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("anonymous callers are not looked up", func(t *testing.T) {
		r := gin.New()
		r.Use(IdempotencyValidator(IdempotencyOptions{Scope: "products.store"},
			func(context.Context, string, string, string, time.Time) (bool, error) {
				t.Fatalf("lookup must not run without a user")
				return false, nil
			}))
		r.POST("/api/products", func(c *gin.Context) {
			if key, ok := GetIdempotencyKey(c); !ok || key != "k-1" {
				t.Fatalf("key = %q", key)
			}
			c.Status(http.StatusCreated)
		})
		req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
		req.Header.Set(HeaderIdempotencyKey, "k-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d", w.Code)
		}
	})

	for _, hit := range []bool{false, true} {
		replaysBefore := testutil.ToFloat64(idempotentReplays.WithLabelValues("products.store"))
		r := gin.New()
		r.Use(func(c *gin.Context) { c.Set(userIDKey, "u9"); c.Next() })
		r.Use(IdempotencyValidator(IdempotencyOptions{Scope: "products.store"},
			func(_ context.Context, userID, scope, key string, now time.Time) (bool, error) {
				if userID != "u9" || scope != "products.store" || key != "k-9" || now.IsZero() {
					t.Fatalf("lookup args: %q %q %q %v", userID, scope, key, now)
				}
				return hit, nil
			}))
		r.POST("/api/products", func(c *gin.Context) {
			if IsReplay(c) != hit || IsRateBypass(c) != hit {
				t.Fatalf("hit=%v: replay=%v bypass=%v", hit, IsReplay(c), IsRateBypass(c))
			}
			c.Status(http.StatusCreated)
		})
		req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
		req.Header.Set(HeaderIdempotencyKey, "k-9")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d", w.Code)
		}
		want := replaysBefore
		if hit {
			want++
		}
		if got := testutil.ToFloat64(idempotentReplays.WithLabelValues("products.store")); got != want {
			t.Fatalf("hit=%v: idempotent_replays_total = %v; want %v", hit, got, want)
		}
	}
}
