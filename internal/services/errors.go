// Package services holds the business logic behind the auth and product
// endpoints. Services return *failure.Signal values for every predictable
// outcome (bad credentials, missing product, denied action) and wrap anything
// unexpected with failure.Unhandled so the HTTP layer can translate both the
// same way.
//
// This file centralizes the client-facing messages those signals carry.
package services

import (
	"fmt"
	"strings"
)

// Authentication messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailTaken         = "The email has already been taken."
)

// passwordTooLong matches the request validator's maxbytes message for bcrypt's
// 72-byte input limit.
func passwordTooLong(field string) string {
	return fmt.Sprintf("The %s field must not be greater than 72 bytes.", strings.ReplaceAll(field, "_", " "))
}

// Product messages.
const (
	MsgProductNotFound = "Product not found"
	MsgCannotViewAny   = "You do not have permission to view products"
	MsgCannotView      = "You do not have permission to view this product"
	MsgCannotCreate    = "You do not have permission to create products"
	MsgCannotUpdate    = "You do not have permission to update this product"
	MsgCannotDelete    = "You do not have permission to delete this product"
)

// ScopeProductsCreate is the idempotency scope of product creation.
const ScopeProductsCreate = "products.store"
