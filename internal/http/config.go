package http

import (
	"github.com/abushop/shopfront/internal/audit"
	"github.com/abushop/shopfront/internal/auth"
	"github.com/abushop/shopfront/internal/database"
)

// RouterConfig contains all dependencies and configuration needed to create
// the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database     *database.Database
	ProductStore ProductStore

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	RateLimiter    *auth.RateLimiter

	// Audit trail; nil disables recording
	Auditor *audit.Service

	// Static frontend
	StaticPath string

	// Application info
	Version string
}
