package failure

import (
	"errors"
	"runtime"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// stackTracer is implemented by errors created or wrapped by github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Frame is one resolved stack frame.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// Frames returns up to max frames of the innermost stack trace recorded in the
// chain of err. Frames of this package and of the Go runtime are skipped, and
// for a recovered panic the trace starts at the code that panicked. It returns
// nil when no stack was recorded.
func Frames(err error, max int) []Frame {
	st := deepestStack(err)
	if st == nil {
		return nil
	}
	for i, f := range st {
		if fn := runtime.FuncForPC(uintptr(f) - 1); fn != nil && fn.Name() == "runtime.gopanic" {
			st = st[i+1:]
			break
		}
	}
	out := make([]Frame, 0, len(st))
	for _, f := range st {
		if max > 0 && len(out) >= max {
			break
		}
		pc := uintptr(f) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		name := fn.Name()
		if strings.HasPrefix(name, "runtime.") || strings.Contains(name, "/internal/failure.") {
			continue
		}
		file, line := fn.FileLine(pc)
		out = append(out, Frame{File: file, Line: line, Function: name})
	}
	return out
}

// deepestStack walks the chain and keeps the last (innermost) stack found, which
// is the one closest to where the error originated.
func deepestStack(err error) pkgerrors.StackTrace {
	var st pkgerrors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(stackTracer); ok {
			st = t.StackTrace()
		}
	}
	return st
}
