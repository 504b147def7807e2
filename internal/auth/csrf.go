package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CSRFTokenHeader is the header carrying the CSRF token on mutating requests.
const CSRFTokenHeader = "X-CSRF-Token"

// ErrorKeyInvalidCSRF is the machine-readable error key for CSRF failures.
const ErrorKeyInvalidCSRF = "invalid_csrf"

// CSRFGuard returns a Gin middleware for mutating endpoints. The submitted
// X-CSRF-Token header must exactly match the token bound to the caller's
// session; otherwise the request is rejected with 400 before the handler
// runs, so no state can change.
func CSRFGuard(sm *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sm.ValidateCSRFToken(c.Request, c.GetHeader(CSRFTokenHeader)) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrorKeyInvalidCSRF})
			return
		}
		c.Next()
	}
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
