package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/audit"
	"github.com/abushop/shopfront/internal/auth"
	"github.com/abushop/shopfront/internal/entities"
)

// UsersController handles the stateless token flow: registration and bearer
// token login. Credential verification goes through the same auth.Service as
// the session flow, so the timing-equalization policy is identical.
type UsersController struct {
	service     *auth.Service
	rateLimiter *auth.RateLimiter
	auditor     *audit.Service
}

// NewUsersController creates a new UsersController. The rate limiter and
// auditor may be nil to disable attempt limiting and the audit trail
// respectively.
func NewUsersController(service *auth.Service, rateLimiter *auth.RateLimiter, auditor *audit.Service) *UsersController {
	return &UsersController{
		service:     service,
		rateLimiter: rateLimiter,
		auditor:     auditor,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new credential record. A duplicate email or username is
// rejected by the storage layer's unique constraint, so of two concurrent
// registrations for the same identity exactly one succeeds.
func (uc *UsersController) Register(c *gin.Context) {
	var req registerRequest
	_ = c.ShouldBindJSON(&req)

	user, err := uc.service.Register(req.Username, req.Email, req.Password)
	uc.auditor.LogRegistration(user, auth.NormalizeIdentifier(req.Email), c.ClientIP(), err)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameRequired),
			errors.Is(err, auth.ErrEmailRequired),
			errors.Is(err, auth.ErrPasswordRequired):
			respondBadRequest(c, ErrKeyMissingFields)
		case errors.Is(err, auth.ErrUsernameInvalid):
			respondBadRequest(c, ErrKeyInvalidUsername)
		case errors.Is(err, auth.ErrEmailInvalid):
			respondBadRequest(c, ErrKeyInvalidEmail)
		case errors.Is(err, auth.ErrPasswordTooShort),
			errors.Is(err, auth.ErrPasswordTooLong):
			respondBadRequest(c, ErrKeyWeakPassword)
		case errors.Is(err, auth.ErrUserExists):
			respondBadRequest(c, ErrKeyUserExists)
		default:
			respondInternalError(c, err, "register user")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user registered successfully"})
}

// Login verifies credentials and issues a signed bearer token with a fixed
// expiry. Failures do not reveal whether the account exists.
func (uc *UsersController) Login(c *gin.Context) {
	var req loginRequest
	_ = c.ShouldBindJSON(&req)

	email := auth.NormalizeIdentifier(req.Email)

	if uc.rateLimiter != nil {
		allowed, retryAfter := uc.rateLimiter.Allow(c.ClientIP(), email)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: ErrKeyTooManyAttempts})
			return
		}
	}

	user, err := uc.service.Verify(email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			if uc.rateLimiter != nil {
				uc.rateLimiter.RecordFailure(c.ClientIP(), email)
			}
			uc.auditor.LogLogin(entities.AuthActionTokenLogin, nil, email, c.ClientIP(), err)
			respondUnauthorized(c, ErrKeyInvalidCredentials)
			return
		}
		respondInternalError(c, err, "token login")
		return
	}

	if uc.rateLimiter != nil {
		uc.rateLimiter.RecordSuccess(c.ClientIP(), email)
	}
	uc.auditor.LogLogin(entities.AuthActionTokenLogin, user, email, c.ClientIP(), nil)

	token, err := uc.service.IssueAccessToken(user)
	if err != nil {
		respondInternalError(c, err, "issue access token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": token})
}
