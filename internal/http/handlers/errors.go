package handlers

// Handlers do not choose status codes for failures. They attach the error to
// the request and stop; middleware.Interceptor translates it into the
// envelope (validation 422, authentication 401, authorization 403,
// not found 404, anything else 500).
//
// Example failure response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "success": false,
//	  "code": 404,
//	  "message": "Product not found",
//	  "data": null
//	}

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/failure"
	"github.com/tbourn/go-product-api/internal/http/middleware"
)

// abort hands err to the interceptor and stops the handler chain. Unhandled
// failures get a debug line here, with the endpoint that produced them; the
// interceptor logs the failure itself.
func abort(c *gin.Context, err error) {
	if failure.IsKind(err, failure.KindUnhandled) {
		middleware.LoggerFrom(c).Debug().Err(err).Str("route", c.FullPath()).Msg("handler failed")
	}
	middleware.Fail(c, err)
}
