package middleware

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/failure"
	"github.com/tbourn/go-product-api/internal/http/envelope"
)

// InterceptorOptions configures Interceptor.
type InterceptorOptions struct {
	// Debug exposes file, line and a short trace for unhandled failures.
	Debug bool
	// BasePath is the prefix of API routes, e.g. "/api". Requests under it
	// always receive envelopes.
	BasePath string
}

// Interceptor is the single place where failures become responses.
//
// Handlers and middleware attach a failure with c.Error and return (or abort).
// After the chain completes, Interceptor renders the last attached error
// through envelope.Translate, with the HTTP status equal to the envelope code.
// Panics are recovered into unhandled failures and rendered the same way.
//
// Nothing is rendered when the response was already written. Requests that are
// neither under BasePath nor ask for JSON get a plain-text status line instead
// of an envelope.
func Interceptor(opts InterceptorOptions) gin.HandlerFunc {
	base := strings.TrimRight(opts.BasePath, "/")

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			_ = c.Error(failure.Panic(rec))
			c.Abort()
			render(c, base, opts.Debug)
		}()

		c.Next()
		render(c, base, opts.Debug)
	}
}

func render(c *gin.Context, base string, debug bool) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err
	sig := failure.From(err)
	apiFailures.WithLabelValues(sig.Kind.String()).Inc()

	env := envelope.Translate(sig, envelope.TranslateOptions{
		Debug:  debug,
		Logger: LoggerFrom(c),
	})

	if !wantsEnvelope(c.Request, base) {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.AbortWithStatus(env.Code)
		_, _ = c.Writer.WriteString(http.StatusText(env.Code))
		return
	}
	c.AbortWithStatusJSON(env.Code, env)
}

// wantsEnvelope reports whether r is an API request or explicitly prefers a
// JSON response (its first Accept media type is JSON).
func wantsEnvelope(r *http.Request, base string) bool {
	if base == "" || r.URL.Path == base || strings.HasPrefix(r.URL.Path, base+"/") {
		return true
	}
	return prefersJSON(r.Header.Get("Accept"))
}

func prefersJSON(accept string) bool {
	first, _, _ := strings.Cut(accept, ",")
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(first))
	if err != nil {
		return false
	}
	return strings.HasSuffix(mt, "/json") || strings.HasSuffix(mt, "+json")
}

// Fail attaches err to the context and aborts the chain. The interceptor
// renders it.
func Fail(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("nil failure")
	}
	_ = c.Error(err)
	c.Abort()
}
