package envelope

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-product-api/internal/failure"
)

// Messages used by Translate when a signal carries no message of its own.
const (
	MsgInvalidToken     = "Invalid or expired token"
	MsgInvalidData      = "The provided data is invalid"
	MsgRouteNotFound    = "The requested resource was not found"
	MsgMethodNotAllowed = "HTTP method not allowed"
	MsgAccessDenied     = "You do not have permission to access this resource"
	MsgBodyTooLarge     = "The request body is too large"
	MsgInternal         = "An internal server error occurred"
)

// DebugFrames caps the number of stack frames exposed in debug mode.
const DebugFrames = 5

// TranslateOptions controls how unhandled failures are rendered.
type TranslateOptions struct {
	// Debug exposes the cause message, origin file/line and the first
	// DebugFrames stack frames of unhandled failures.
	Debug bool
	// Logger receives unhandled failures before translation. Nil disables logging.
	Logger *zerolog.Logger
}

// DebugData is the data member of an unhandled failure in debug mode.
type DebugData struct {
	File  string          `json:"file"`
	Line  int             `json:"line"`
	Trace []failure.Frame `json:"trace"`
}

// Translate maps err to the envelope for its failure kind. Non-signal errors are
// treated as unhandled. A nil err yields a server error, since callers only
// translate when something failed.
func Translate(err error, opts TranslateOptions) Envelope {
	sig := failure.From(err)
	if sig == nil {
		sig = &failure.Signal{Kind: failure.KindUnhandled}
	}

	switch sig.Kind {
	case failure.KindAuthentication:
		return Unauthorized(orDefault(sig.Message, MsgInvalidToken))
	case failure.KindValidation:
		return ValidationError(sig.Fields, orDefault(sig.Message, MsgInvalidData))
	case failure.KindNotFound:
		return NotFound(orDefault(sig.Message, MsgRouteNotFound))
	case failure.KindMethodNotAllowed:
		return Error(MsgMethodNotAllowed, http.StatusMethodNotAllowed, nil)
	case failure.KindAuthorization:
		return Forbidden(orDefault(sig.Message, MsgAccessDenied))
	case failure.KindTooLarge:
		return Error(orDefault(sig.Message, MsgBodyTooLarge), http.StatusRequestEntityTooLarge, nil)
	}

	frames := failure.Frames(sig, DebugFrames)
	logUnhandled(opts.Logger, sig, frames)

	if !opts.Debug {
		return ServerError(MsgInternal)
	}
	dd := DebugData{Trace: frames}
	if dd.Trace == nil {
		dd.Trace = []failure.Frame{}
	}
	if len(frames) > 0 {
		dd.File, dd.Line = frames[0].File, frames[0].Line
	}
	return Error(orDefault(sig.Error(), MsgInternal), http.StatusInternalServerError, dd)
}

// logUnhandled writes the failure to lg. A panicking writer must not prevent
// the response from being rendered, so any panic here is swallowed.
func logUnhandled(lg *zerolog.Logger, sig *failure.Signal, frames []failure.Frame) {
	if lg == nil {
		return
	}
	defer func() { _ = recover() }()
	ev := lg.Error().Str("kind", sig.Kind.String())
	if len(frames) > 0 {
		ev = ev.Str("file", frames[0].File).Int("line", frames[0].Line)
	}
	ev.Msg(sig.Error())
}
