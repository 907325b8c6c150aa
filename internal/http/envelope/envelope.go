// Package envelope builds the canonical JSON body returned by every endpoint.
//
// Every response, success or failure, has the same shape:
//
//	{
//	  "success": true,
//	  "code":    200,
//	  "message": "Products retrieved successfully",
//	  "data":    { ... } | null
//	}
//
// The constructors here are pure: they never write to the wire, never panic,
// and hold no state, so identical inputs always serialize to identical bytes.
// The HTTP status of a response always equals Envelope.Code, and Success is
// always derived from it (Success == Code < 400).
package envelope

import "net/http"

// Default messages used when a constructor receives an empty message.
const (
	DefaultSuccessMessage      = "Success"
	DefaultErrorMessage        = "Error"
	DefaultValidationMessage   = "Validation failed"
	DefaultNotFoundMessage     = "Resource not found"
	DefaultUnauthorizedMessage = "Unauthorized"
	DefaultForbiddenMessage    = "Forbidden"
	DefaultServerErrorMessage  = "Internal server error"
)

// Envelope is the response body of every endpoint.
type Envelope struct {
	Success bool   `json:"success" example:"true"`
	Code    int    `json:"code" example:"200"`
	Message string `json:"message" example:"Success"`
	Data    any    `json:"data"`
}

// ValidationData is the data member of a validation error envelope.
type ValidationData struct {
	Errors map[string][]string `json:"errors"`
}

// Success builds a success envelope. A zero code means 200; codes outside the
// 1xx–3xx range are coerced to 200. Paginated data is expanded into
// {items, pagination}.
func Success(data any, message string, code int) Envelope {
	if code < 100 || code >= 400 {
		code = http.StatusOK
	}
	if p, ok := data.(Paginated); ok {
		data = pageData{Items: p.PageItems(), Pagination: p.PageMeta()}
	}
	return Envelope{
		Success: true,
		Code:    code,
		Message: orDefault(message, DefaultSuccessMessage),
		Data:    data,
	}
}

// OK is Success with the default 200 status.
func OK(data any, message string) Envelope {
	return Success(data, message, http.StatusOK)
}

// Error builds a generic failure envelope. A zero code means 400; codes
// below 400 or above 599 are coerced to 400.
func Error(message string, code int, data any) Envelope {
	if code < 400 || code > 599 {
		code = http.StatusBadRequest
	}
	return Envelope{
		Success: false,
		Code:    code,
		Message: orDefault(message, DefaultErrorMessage),
		Data:    data,
	}
}

// ValidationError builds a 422 envelope with data.errors set to errs. The
// status is fixed; a nil errs serializes as an empty object.
func ValidationError(errs map[string][]string, message string) Envelope {
	if errs == nil {
		errs = map[string][]string{}
	}
	return Envelope{
		Success: false,
		Code:    http.StatusUnprocessableEntity,
		Message: orDefault(message, DefaultValidationMessage),
		Data:    ValidationData{Errors: errs},
	}
}

// NotFound builds a 404 envelope.
func NotFound(message string) Envelope {
	return fixed(http.StatusNotFound, orDefault(message, DefaultNotFoundMessage))
}

// Unauthorized builds a 401 envelope.
func Unauthorized(message string) Envelope {
	return fixed(http.StatusUnauthorized, orDefault(message, DefaultUnauthorizedMessage))
}

// Forbidden builds a 403 envelope.
func Forbidden(message string) Envelope {
	return fixed(http.StatusForbidden, orDefault(message, DefaultForbiddenMessage))
}

// ServerError builds a 500 envelope. It never carries data.
func ServerError(message string) Envelope {
	return fixed(http.StatusInternalServerError, orDefault(message, DefaultServerErrorMessage))
}

func fixed(code int, message string) Envelope {
	return Envelope{Success: false, Code: code, Message: message, Data: nil}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
