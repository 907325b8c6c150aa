package handlers

// This file holds the success writers shared by all endpoints. Every body is
// an envelope.Envelope and the HTTP status always equals its code.
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{
//	  "success": true,
//	  "code": 200,
//	  "message": "Product retrieved successfully",
//	  "data": { "id": "...", "name": "Widget", ... }
//	}

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/http/envelope"
)

// ok writes a success envelope with the given status.
func ok(c *gin.Context, status int, data any, message string) {
	env := envelope.Success(data, message, status)
	c.JSON(env.Code, env)
}

// created writes a 201 success envelope.
func created(c *gin.Context, data any, message string) {
	ok(c, http.StatusCreated, data, message)
}

// notModified answers a conditional GET whose validator still matches.
func notModified(c *gin.Context) {
	c.Status(http.StatusNotModified)
}
