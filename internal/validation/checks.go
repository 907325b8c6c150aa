package validation

import (
	"context"
	"fmt"
)

// MsgCurrentPasswordIncorrect is reported when the supplied current password
// does not match the caller's stored hash.
const MsgCurrentPasswordIncorrect = "Current password is incorrect."

// Unique fails when taken reports the value is already in use.
func Unique(field string, taken func(ctx context.Context) (bool, error)) Check {
	return Rule(field, func(ctx context.Context) (string, error) {
		used, err := taken(ctx)
		if err != nil {
			return "", err
		}
		if used {
			return fmt.Sprintf("The %s has already been taken.", label(field)), nil
		}
		return "", nil
	})
}

// CurrentPassword fails when matches reports the supplied password is wrong.
func CurrentPassword(field string, matches func(ctx context.Context) (bool, error)) Check {
	return Rule(field, func(ctx context.Context) (string, error) {
		ok, err := matches(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return MsgCurrentPasswordIncorrect, nil
		}
		return "", nil
	})
}
