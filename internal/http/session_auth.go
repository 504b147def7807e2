package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/audit"
	"github.com/abushop/shopfront/internal/auth"
	"github.com/abushop/shopfront/internal/entities"
)

// SessionAuthController handles the cookie-session login flow: CSRF token
// issuance, login and logout.
type SessionAuthController struct {
	service     *auth.Service
	sessions    *auth.SessionManager
	rateLimiter *auth.RateLimiter
	auditor     *audit.Service
}

// NewSessionAuthController creates a new SessionAuthController. The rate
// limiter and auditor may be nil to disable attempt limiting and the audit
// trail respectively.
func NewSessionAuthController(service *auth.Service, sessions *auth.SessionManager, rateLimiter *auth.RateLimiter, auditor *audit.Service) *SessionAuthController {
	return &SessionAuthController{
		service:     service,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		auditor:     auditor,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CSRFToken returns the CSRF token bound to the caller's session, creating
// one if absent. Clients include it in the X-CSRF-Token header on mutating
// requests.
func (sc *SessionAuthController) CSRFToken(c *gin.Context) {
	token, err := sc.sessions.GetOrIssueCSRFToken(c.Request)
	if err != nil {
		respondInternalError(c, err, "issue csrf token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

// Login authenticates the caller and establishes a session. The CSRF guard
// runs before this handler; by the time we are here the submitted token
// matched the session-bound one.
func (sc *SessionAuthController) Login(c *gin.Context) {
	var req loginRequest
	// A malformed body is treated as empty fields, mapped below.
	_ = c.ShouldBindJSON(&req)

	email := auth.NormalizeIdentifier(req.Email)
	if email == "" || req.Password == "" {
		respondBadRequest(c, ErrKeyMissingFields)
		return
	}

	if !sc.allowAttempt(c, email) {
		return
	}

	user, err := sc.service.Verify(email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			sc.recordFailure(c, email)
			sc.auditor.LogLogin(entities.AuthActionSessionLogin, nil, email, c.ClientIP(), err)
			respondUnauthorized(c, ErrKeyInvalidCredentials)
			return
		}
		respondInternalError(c, err, "session login")
		return
	}

	sc.recordSuccess(c, email)
	sc.auditor.LogLogin(entities.AuthActionSessionLogin, user, email, c.ClientIP(), nil)

	if err := sc.sessions.CreateSession(c.Request, user); err != nil {
		respondInternalError(c, err, "create session")
		return
	}

	// Rotate the CSRF token: the pre-authentication token must not carry
	// over into the authenticated session.
	if _, err := sc.sessions.IssueCSRFToken(c.Request); err != nil {
		respondInternalError(c, err, "rotate csrf token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "name": user.Name})
}

// Logout destroys the caller's session.
func (sc *SessionAuthController) Logout(c *gin.Context) {
	userID := sc.sessions.GetUserID(c.Request)
	if err := sc.sessions.DestroySession(c.Request); err != nil {
		respondInternalError(c, err, "destroy session")
		return
	}
	if userID > 0 {
		sc.auditor.LogLogout(userID, c.ClientIP())
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (sc *SessionAuthController) allowAttempt(c *gin.Context, identifier string) bool {
	if sc.rateLimiter == nil {
		return true
	}
	allowed, retryAfter := sc.rateLimiter.Allow(c.ClientIP(), identifier)
	if !allowed {
		c.Header("Retry-After", retryAfter.String())
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: ErrKeyTooManyAttempts})
		return false
	}
	return true
}

func (sc *SessionAuthController) recordFailure(c *gin.Context, identifier string) {
	if sc.rateLimiter != nil {
		sc.rateLimiter.RecordFailure(c.ClientIP(), identifier)
	}
}

func (sc *SessionAuthController) recordSuccess(c *gin.Context, identifier string) {
	if sc.rateLimiter != nil {
		sc.rateLimiter.RecordSuccess(c.ClientIP(), identifier)
	}
}
