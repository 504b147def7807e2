package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/abushop/shopfront/internal/config"
	"github.com/abushop/shopfront/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID  = "user_id"
	SessionKeyEmail   = "email"
	SessionKeyName    = "name"
	SessionKeyLoginAt = "login_at"
	SessionKeyCSRF    = "csrf_token"
)

// csrfTokenBytes is the entropy of a CSRF token (256 bits).
const csrfTokenBytes = 32

func init() {
	// Register types that will be stored in sessions
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
// It owns two pieces of per-session state: the authenticated identity and
// the CSRF token bound to the session.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager backed by the
// sessions table in sqlDB.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	// Create sessions table if it doesn't exist
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2 // Half of lifetime for inactivity

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession binds an authenticated identity to the session. The session
// token is renewed first to prevent session fixation. The caller is expected
// to also rotate the CSRF token so the pre-authentication token cannot be
// replayed in the authenticated context.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyUserID, int(user.ID))
	sm.Put(r.Context(), SessionKeyEmail, user.Email)
	sm.Put(r.Context(), SessionKeyName, user.Name)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())

	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID retrieves the user ID from the session.
// Returns 0 if not authenticated.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// GetEmail retrieves the authenticated identifier from the session.
func (sm *SessionManager) GetEmail(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyEmail)
}

// GetName retrieves the display name from the session.
func (sm *SessionManager) GetName(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyName)
}

// IsAuthenticated returns true if the request has a valid session.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

// IssueCSRFToken generates a fresh random token and binds it to the session,
// overwriting any prior value.
func (sm *SessionManager) IssueCSRFToken(r *http.Request) (string, error) {
	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	sm.Put(r.Context(), SessionKeyCSRF, token)
	return token, nil
}

// CSRFToken returns the token currently bound to the session, or "".
func (sm *SessionManager) CSRFToken(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyCSRF)
}

// GetOrIssueCSRFToken returns the session's CSRF token, creating one if
// absent.
func (sm *SessionManager) GetOrIssueCSRFToken(r *http.Request) (string, error) {
	if token := sm.CSRFToken(r); token != "" {
		return token, nil
	}
	return sm.IssueCSRFToken(r)
}

// ValidateCSRFToken reports whether the submitted token exactly equals the
// session-bound one. An empty or missing token on either side never
// validates.
func (sm *SessionManager) ValidateCSRFToken(r *http.Request, submitted string) bool {
	bound := sm.CSRFToken(r)
	if bound == "" || submitted == "" {
		return false
	}
	return constantTimeEqual(bound, submitted)
}

func newCSRFToken() (string, error) {
	bytes := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
