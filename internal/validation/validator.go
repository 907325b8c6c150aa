// Package validation checks request payloads before a handler body runs.
//
// Struct rules are declared with `validate` tags and evaluated by
// go-playground/validator; cross-field or storage-backed rules (unique email,
// current password) are expressed as Checks. Any violation yields a single
// failure.Validation signal mapping JSON field names to ordered messages, and
// nothing after validation runs. A body cut short by http.MaxBytesReader is
// reported as failure.TooLarge instead.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-product-api/internal/failure"
)

// BodyField is the pseudo-field used for payloads that are not valid JSON.
const BodyField = "body"

// Check is a rule evaluated after the struct rules. It runs only when Field
// passed its tag rules, so Fn can assume a well-formed value.
type Check struct {
	Field string
	// Fn returns a non-empty message when the rule fails. A non-nil error is
	// an infrastructure failure and aborts validation.
	Fn func(ctx context.Context) (string, error)
}

// Rule builds a Check.
func Rule(field string, fn func(ctx context.Context) (string, error)) Check {
	return Check{Field: field, Fn: fn}
}

// Validator validates request structs and reports fields by their JSON name.
type Validator struct {
	engine *validator.Validate
}

// New returns a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("confirmed", confirmed)
	_ = v.RegisterValidation("filled", filled)
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return &Validator{engine: v}
}

// Bind decodes the JSON body of c into req and validates it. An empty body is
// treated as an empty object so that required rules report the missing fields.
func (v *Validator) Bind(c *gin.Context, req any, checks ...Check) error {
	fields := failure.Fields{}
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return failure.TooLarge(tooLarge.Limit)
			}
			var ute *json.UnmarshalTypeError
			if !errors.As(err, &ute) {
				return failure.FieldError(BodyField, "The request body must be valid JSON.")
			}
			field := ute.Field
			if field == "" {
				return failure.FieldError(BodyField, "The request body must be a JSON object.")
			}
			fields.Add(field, typeMessage(field, ute.Type))
		}
	}
	return v.validate(c.Request.Context(), req, fields, checks)
}

// Validate runs the struct rules and checks against an already-decoded req.
func (v *Validator) Validate(ctx context.Context, req any, checks ...Check) error {
	return v.validate(ctx, req, failure.Fields{}, checks)
}

func (v *Validator) validate(ctx context.Context, req any, fields failure.Fields, checks []Check) error {
	if err := v.engine.StructCtx(ctx, req); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return failure.Unhandled(err)
		}
		for _, fe := range ves {
			name := fieldPath(fe)
			if _, seen := fields[name]; seen {
				continue
			}
			fields.Add(name, message(name, fe))
		}
	}

	for _, ck := range checks {
		if _, failed := fields[ck.Field]; failed {
			continue
		}
		msg, err := ck.Fn(ctx)
		if err != nil {
			return failure.Unhandled(err)
		}
		if msg != "" {
			fields.Add(ck.Field, msg)
		}
	}

	if len(fields) > 0 {
		return failure.Validation(fields)
	}
	return nil
}

// fieldPath returns the JSON path of fe without the top-level struct name.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// confirmed passes when the sibling field <Name>Confirmation holds the same
// value, e.g. Password / PasswordConfirmation.
func confirmed(fl validator.FieldLevel) bool {
	parent := fl.Parent()
	for parent.Kind() == reflect.Ptr {
		if parent.IsNil() {
			return false
		}
		parent = parent.Elem()
	}
	conf := parent.FieldByName(fl.StructFieldName() + "Confirmation")
	if !conf.IsValid() {
		return false
	}
	for conf.Kind() == reflect.Ptr {
		if conf.IsNil() {
			return false
		}
		conf = conf.Elem()
	}
	field := fl.Field()
	if conf.Kind() != field.Kind() || !conf.CanInterface() || !field.CanInterface() {
		return false
	}
	return conf.Interface() == field.Interface()
}

// filled rejects strings that are empty after trimming whitespace.
func filled(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return !f.IsZero()
	}
	return strings.TrimSpace(f.String()) != ""
}

// maxBytes limits the UTF-8 length of a string, e.g. maxbytes=72 for bcrypt input.
func maxBytes(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return false
	}
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(f.String()) <= n
}
