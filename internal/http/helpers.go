package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error keys surfaced to API clients.
const (
	ErrKeyInvalidCSRF        = "invalid_csrf"
	ErrKeyMissingFields      = "missing_fields"
	ErrKeyInvalidCredentials = "invalid_credentials"
	ErrKeyBadItems           = "bad_items"
	ErrKeyUnknownProduct     = "unknown_product"
	ErrKeyInvalidQty         = "invalid_qty"
	ErrKeyUserExists         = "user_exists"
	ErrKeyInvalidUsername    = "invalid_username"
	ErrKeyInvalidEmail       = "invalid_email"
	ErrKeyWeakPassword       = "weak_password"
	ErrKeyTooManyAttempts    = "too_many_attempts"
	ErrKeyInternal           = "internal_error"
)

// ErrorResponse is the standard error response format for all API errors.
// Error holds a machine-readable key, never free-form internals.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondBadRequest sends a 400 Bad Request response with an error key.
func respondBadRequest(c *gin.Context, key string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: key})
}

// respondUnauthorized sends a 401 Unauthorized response with an error key.
func respondUnauthorized(c *gin.Context, key string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: key})
}

// respondInternalError logs the error and sends a generic 500 response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrKeyInternal})
}
