package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/auth"
	"github.com/abushop/shopfront/internal/config"
	"github.com/abushop/shopfront/internal/database"
	"github.com/abushop/shopfront/internal/database/products"
	"github.com/abushop/shopfront/internal/database/users"
)

type testApp struct {
	router  *gin.Engine
	service *auth.Service
}

func setupTestApp(t *testing.T, authCfg config.Auth) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if authCfg.BcryptCost == 0 {
		authCfg.BcryptCost = 4
	}
	if authCfg.SessionLifetime == 0 {
		authCfg.SessionLifetime = time.Hour
	}
	if authCfg.TokenExpiry == 0 {
		authCfg.TokenExpiry = time.Hour
	}
	if authCfg.JWTSecret == "" {
		authCfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	}

	service := auth.NewService(users.NewRepository(db.DB), authCfg)

	sqlDB, err := db.DB.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, authCfg)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	var rateLimiter *auth.RateLimiter
	if authCfg.MaxLoginAttempts > 0 {
		rateLimiter = auth.NewRateLimiter(auth.RateLimitConfig{
			MaxAttempts:     authCfg.MaxLoginAttempts,
			WindowDuration:  authCfg.RateLimitWindow,
			LockoutDuration: authCfg.LockoutDuration,
		})
		t.Cleanup(rateLimiter.Stop)
	}

	router := NewRouter(RouterConfig{
		Database:       db,
		ProductStore:   products.NewRepository(db.DB),
		AuthService:    service,
		SessionManager: sessionManager,
		RateLimiter:    rateLimiter,
		Version:        "test",
	})

	return &testApp{router: router, service: service}
}

// client carries session cookies between requests, like a browser would.
type client struct {
	t       *testing.T
	router  *gin.Engine
	cookies []*http.Cookie
}

func newClient(t *testing.T, app *testApp) *client {
	return &client{t: t, router: app.router}
}

func (cl *client) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	cl.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			cl.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range cl.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	cl.router.ServeHTTP(w, req)

	// Adopt any cookies the server set, replacing same-named ones
	for _, cookie := range w.Result().Cookies() {
		replaced := false
		for i, existing := range cl.cookies {
			if existing.Name == cookie.Name {
				cl.cookies[i] = cookie
				replaced = true
				break
			}
		}
		if !replaced {
			cl.cookies = append(cl.cookies, cookie)
		}
	}

	return w
}

func (cl *client) csrfToken() string {
	cl.t.Helper()
	w := cl.do(http.MethodGet, "/api/csrf", nil, nil)
	if w.Code != http.StatusOK {
		cl.t.Fatalf("GET /api/csrf returned %d", w.Code)
	}
	return decodeBody(cl.t, w)["csrf_token"].(string)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %s: %v", w.Body.String(), err)
	}
	return body
}

func registerUser(t *testing.T, app *testApp, username, email, password string) {
	t.Helper()
	if _, err := app.service.Register(username, email, password); err != nil {
		t.Fatalf("Failed to register %s: %v", email, err)
	}
}

func TestSessionLoginFlow(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	registerUser(t, app, "alice", "alice@example.com", "password123")

	cl := newClient(t, app)
	token := cl.csrfToken()

	w := cl.do(http.MethodPost, "/api/login",
		gin.H{"email": "alice@example.com", "password": "password123"},
		map[string]string{auth.CSRFTokenHeader: token})

	if w.Code != http.StatusOK {
		t.Fatalf("Login returned %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["ok"] != true {
		t.Errorf(`body["ok"] = %v, want true`, body["ok"])
	}
	if body["name"] != "alice" {
		t.Errorf(`body["name"] = %v, want alice`, body["name"])
	}

	// Login rotates the CSRF token
	if rotated := cl.csrfToken(); rotated == token {
		t.Error("Expected a fresh CSRF token after login")
	}
}

func TestSessionLogin_RejectsWithoutCSRF(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	registerUser(t, app, "alice", "alice@example.com", "password123")

	cl := newClient(t, app)
	cl.csrfToken() // establish a session, but do not send the token

	w := cl.do(http.MethodPost, "/api/login",
		gin.H{"email": "alice@example.com", "password": "password123"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != ErrKeyInvalidCSRF {
		t.Errorf(`body["error"] = %v, want %s`, body["error"], ErrKeyInvalidCSRF)
	}
}

func TestSessionLogin_BadInput(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	registerUser(t, app, "alice", "alice@example.com", "password123")

	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing email",
			body:       gin.H{"password": "password123"},
			wantStatus: http.StatusBadRequest,
			wantError:  ErrKeyMissingFields,
		},
		{
			name:       "missing password",
			body:       gin.H{"email": "alice@example.com"},
			wantStatus: http.StatusBadRequest,
			wantError:  ErrKeyMissingFields,
		},
		{
			name:       "wrong password",
			body:       gin.H{"email": "alice@example.com", "password": "wrongpassword"},
			wantStatus: http.StatusUnauthorized,
			wantError:  ErrKeyInvalidCredentials,
		},
		{
			name:       "unknown account",
			body:       gin.H{"email": "ghost@example.com", "password": "password123"},
			wantStatus: http.StatusUnauthorized,
			wantError:  ErrKeyInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := newClient(t, app)
			token := cl.csrfToken()

			w := cl.do(http.MethodPost, "/api/login", tt.body,
				map[string]string{auth.CSRFTokenHeader: token})

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if body := decodeBody(t, w); body["error"] != tt.wantError {
				t.Errorf(`body["error"] = %v, want %s`, body["error"], tt.wantError)
			}
		})
	}
}

func TestSessionLogout(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	registerUser(t, app, "alice", "alice@example.com", "password123")

	cl := newClient(t, app)
	token := cl.csrfToken()
	w := cl.do(http.MethodPost, "/api/login",
		gin.H{"email": "alice@example.com", "password": "password123"},
		map[string]string{auth.CSRFTokenHeader: token})
	if w.Code != http.StatusOK {
		t.Fatalf("Login returned %d", w.Code)
	}

	token = cl.csrfToken() // rotated at login
	w = cl.do(http.MethodPost, "/api/logout", nil,
		map[string]string{auth.CSRFTokenHeader: token})
	if w.Code != http.StatusOK {
		t.Fatalf("Logout returned %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["ok"] != true {
		t.Errorf(`body["ok"] = %v, want true`, body["ok"])
	}

	// The destroyed session no longer holds the old token
	w = cl.do(http.MethodPost, "/api/logout", nil,
		map[string]string{auth.CSRFTokenHeader: token})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 reusing a destroyed session's token, got %d", w.Code)
	}
}

func TestSessionLogin_RateLimited(t *testing.T) {
	app := setupTestApp(t, config.Auth{
		MaxLoginAttempts: 2,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	})
	registerUser(t, app, "alice", "alice@example.com", "password123")

	cl := newClient(t, app)
	for i := 0; i < 2; i++ {
		token := cl.csrfToken()
		w := cl.do(http.MethodPost, "/api/login",
			gin.H{"email": "alice@example.com", "password": "wrongpassword"},
			map[string]string{auth.CSRFTokenHeader: token})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Attempt %d returned %d", i+1, w.Code)
		}
	}

	token := cl.csrfToken()
	w := cl.do(http.MethodPost, "/api/login",
		gin.H{"email": "alice@example.com", "password": "password123"},
		map[string]string{auth.CSRFTokenHeader: token})

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != ErrKeyTooManyAttempts {
		t.Errorf(`body["error"] = %v, want %s`, body["error"], ErrKeyTooManyAttempts)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected a Retry-After header")
	}
}

func TestListProducts(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	cl := newClient(t, app)

	// Public: no session, no CSRF token
	w := cl.do(http.MethodGet, "/api/products", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/products returned %d", w.Code)
	}

	list, ok := decodeBody(t, w)["products"].([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("Expected 3 seeded products, got %v", list)
	}
	first := list[0].(map[string]any)
	if first["name"] != "Eco Toothbrush" || first["price"] != 3.50 {
		t.Errorf("products[0] = %v, want Eco Toothbrush at 3.50", first)
	}
}

func TestCartTotal(t *testing.T) {
	app := setupTestApp(t, config.Auth{})

	tests := []struct {
		name       string
		body       any
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "valid cart",
			body:       gin.H{"items": []gin.H{{"id": 1, "qty": 2}, {"id": 2, "qty": 1}}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["ok"] != true || body["total"] != 16.99 {
					t.Errorf("body = %v, want ok with total 16.99", body)
				}
			},
		},
		{
			name:       "empty cart",
			body:       gin.H{"items": []gin.H{}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["total"] != 0.0 {
					t.Errorf(`body["total"] = %v, want 0`, body["total"])
				}
			},
		},
		{
			name:       "unknown product",
			body:       gin.H{"items": []gin.H{{"id": 999, "qty": 1}}},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				if body["error"] != ErrKeyUnknownProduct || body["id"] != 999.0 {
					t.Errorf("body = %v, want unknown_product with id 999", body)
				}
			},
		},
		{
			name:       "quantity out of range",
			body:       gin.H{"items": []gin.H{{"id": 1, "qty": 101}}},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				if body["error"] != ErrKeyInvalidQty {
					t.Errorf(`body["error"] = %v, want %s`, body["error"], ErrKeyInvalidQty)
				}
			},
		},
		{
			name:       "malformed body",
			body:       "not json at all",
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				if body["error"] != ErrKeyBadItems {
					t.Errorf(`body["error"] = %v, want %s`, body["error"], ErrKeyBadItems)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := newClient(t, app)
			token := cl.csrfToken()

			w := cl.do(http.MethodPost, "/api/cart", tt.body,
				map[string]string{auth.CSRFTokenHeader: token})

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			tt.check(t, decodeBody(t, w))
		})
	}
}

func TestCartTotal_TooManyItems(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	cl := newClient(t, app)
	token := cl.csrfToken()

	items := make([]gin.H, 51)
	for i := range items {
		items[i] = gin.H{"id": 1, "qty": 1}
	}

	w := cl.do(http.MethodPost, "/api/cart", gin.H{"items": items},
		map[string]string{auth.CSRFTokenHeader: token})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != ErrKeyBadItems {
		t.Errorf(`body["error"] = %v, want %s`, body["error"], ErrKeyBadItems)
	}
}

func TestCartTotal_RejectsWithoutCSRF(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	cl := newClient(t, app)

	w := cl.do(http.MethodPost, "/api/cart",
		gin.H{"items": []gin.H{{"id": 1, "qty": 1}}}, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != ErrKeyInvalidCSRF {
		t.Errorf(`body["error"] = %v, want %s`, body["error"], ErrKeyInvalidCSRF)
	}
}

func TestUsersRegister(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	cl := newClient(t, app)

	w := cl.do(http.MethodPost, "/api/users/register",
		gin.H{"username": "dave", "email": "dave@example.com", "password": "password123"}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["message"] != "user registered successfully" {
		t.Errorf(`body["message"] = %v`, body["message"])
	}
}

func TestUsersRegister_BadInput(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	registerUser(t, app, "taken", "taken@example.com", "password123")

	tests := []struct {
		name      string
		body      gin.H
		wantError string
	}{
		{
			name:      "missing fields",
			body:      gin.H{"username": "dave"},
			wantError: ErrKeyMissingFields,
		},
		{
			name:      "invalid username",
			body:      gin.H{"username": "d!", "email": "dave@example.com", "password": "password123"},
			wantError: ErrKeyInvalidUsername,
		},
		{
			name:      "invalid email",
			body:      gin.H{"username": "dave", "email": "not-an-email", "password": "password123"},
			wantError: ErrKeyInvalidEmail,
		},
		{
			name:      "weak password",
			body:      gin.H{"username": "dave", "email": "dave@example.com", "password": "short"},
			wantError: ErrKeyWeakPassword,
		},
		{
			name:      "duplicate email",
			body:      gin.H{"username": "dave", "email": "taken@example.com", "password": "password123"},
			wantError: ErrKeyUserExists,
		},
		{
			name:      "duplicate username",
			body:      gin.H{"username": "taken", "email": "dave@example.com", "password": "password123"},
			wantError: ErrKeyUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := newClient(t, app)
			w := cl.do(http.MethodPost, "/api/users/register", tt.body, nil)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if body := decodeBody(t, w); body["error"] != tt.wantError {
				t.Errorf(`body["error"] = %v, want %s`, body["error"], tt.wantError)
			}
		})
	}
}

func TestUsersLogin(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	registerUser(t, app, "erin", "erin@example.com", "password123")

	cl := newClient(t, app)
	w := cl.do(http.MethodPost, "/api/users/login",
		gin.H{"email": "erin@example.com", "password": "password123"}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["message"] != "login successful" {
		t.Errorf(`body["message"] = %v`, body["message"])
	}

	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("Expected a signed token in the response")
	}
	subject, err := app.service.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("Issued token failed to parse: %v", err)
	}
	if subject != "erin@example.com" {
		t.Errorf("token subject = %q, want erin@example.com", subject)
	}
}

func TestUsersLogin_InvalidCredentials(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	registerUser(t, app, "erin", "erin@example.com", "password123")

	tests := []struct {
		name string
		body gin.H
	}{
		{"wrong password", gin.H{"email": "erin@example.com", "password": "wrongpassword"}},
		{"unknown account", gin.H{"email": "ghost@example.com", "password": "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := newClient(t, app)
			w := cl.do(http.MethodPost, "/api/users/login", tt.body, nil)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("Expected 401, got %d: %s", w.Code, w.Body.String())
			}
			if body := decodeBody(t, w); body["error"] != ErrKeyInvalidCredentials {
				t.Errorf(`body["error"] = %v, want %s`, body["error"], ErrKeyInvalidCredentials)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	cl := newClient(t, app)

	w := cl.do(http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf(`body["status"] = %v, want healthy`, body["status"])
	}
	checks, _ := body["checks"].(map[string]any)
	if checks["database"] != "ok" {
		t.Errorf(`checks["database"] = %v, want ok`, checks["database"])
	}
	if checks["catalog"] != "ok" {
		t.Errorf(`checks["catalog"] = %v, want ok`, checks["catalog"])
	}
}

func TestUnknownRoute(t *testing.T) {
	app := setupTestApp(t, config.Auth{})
	cl := newClient(t, app)

	w := cl.do(http.MethodGet, "/api/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
