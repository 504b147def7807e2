// Package auth provides the identity and credential-verification layer for
// the application.
//
// A single Service verifies credentials for every caller, applying the same
// timing-equalization policy regardless of whether the account exists. Two
// delivery mechanisms sit on top of it:
//
//   - cookie sessions (server-side store, see SessionManager) with a
//     per-session CSRF token required on mutating requests
//   - self-contained bearer tokens (signed JWT with a fixed expiry)
//
// # Configuration
//
//	AUTH_SESSION_LIFETIME=24h    # Session TTL
//	AUTH_TOKEN_EXPIRY=2h         # Bearer token expiry
//	AUTH_BCRYPT_COST=12          # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true     # HTTPS-only cookies
//	AUTH_FAILURE_DELAY=600ms     # Minimum duration of a failed login
//	AUTH_JWT_SECRET=<secret>     # Auto-generated if empty (tokens then die with the process)
//
// # Usage
//
//	svc := auth.NewService(userRepo, cfg.Auth)
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	router.Use(sm.SessionLoadSave())
//	router.POST("/api/cart", auth.CSRFGuard(sm), cartController.Total)
package auth
