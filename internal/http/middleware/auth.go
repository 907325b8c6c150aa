package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/domain"
	"github.com/tbourn/go-product-api/internal/failure"
)

const identityKey = "identity"

// Authenticator resolves a raw bearer token to the caller's Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (domain.Identity, error)
}

// RequireAuth rejects requests without a valid bearer token. On success the
// Identity is stored for IdentityFrom and the user ID under "userID", which
// the access logger and KeyByUserOrIP read.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			Fail(c, failure.Unauthenticated(""))
			return
		}
		id, err := a.Authenticate(c.Request.Context(), raw)
		if err != nil {
			Fail(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Set(userIDKey, id.UserID())
		c.Next()
	}
}

// IdentityFrom returns the Identity stored by RequireAuth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
