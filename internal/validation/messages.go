package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// label turns a JSON field path into the words used in messages:
// "new_password" -> "new password".
func label(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return strings.ReplaceAll(field, "_", " ")
}

func message(field string, fe validator.FieldError) string {
	l := label(field)
	numeric := isNumeric(fe.Kind())
	switch fe.Tag() {
	case "required", "filled":
		return fmt.Sprintf("The %s field is required.", l)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", l)
	case "confirmed":
		return fmt.Sprintf("The %s field confirmation does not match.", l)
	case "min", "gte":
		if numeric {
			return fmt.Sprintf("The %s field must be at least %s.", l, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s characters.", l, fe.Param())
	case "max", "lte":
		if numeric {
			return fmt.Sprintf("The %s field must not be greater than %s.", l, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s characters.", l, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("The %s field must not be greater than %s bytes.", l, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("The %s field must be a valid UUID.", l)
	default:
		return fmt.Sprintf("The %s field is invalid.", l)
	}
}

// typeMessage describes a JSON value whose type does not fit the target field.
func typeMessage(field string, t reflect.Type) string {
	l := label(field)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return fmt.Sprintf("The %s field is invalid.", l)
	}
	switch k := t.Kind(); {
	case k == reflect.String:
		return fmt.Sprintf("The %s field must be a string.", l)
	case k == reflect.Bool:
		return fmt.Sprintf("The %s field must be true or false.", l)
	case k == reflect.Float32 || k == reflect.Float64:
		return fmt.Sprintf("The %s field must be a number.", l)
	case isNumeric(k):
		return fmt.Sprintf("The %s field must be an integer.", l)
	default:
		return fmt.Sprintf("The %s field is invalid.", l)
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
