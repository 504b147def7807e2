package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Auth
		Demo
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	UI struct {
		StaticPath string
	}

	Auth struct {
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// FailureDelay is the minimum duration of a failed credential check.
		// It flattens the timing difference between "no such account" and
		// "wrong password".
		FailureDelay time.Duration

		// JWTSecret signs bearer tokens. Auto-generated per process if empty,
		// which invalidates issued tokens on restart.
		JWTSecret string

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}

	Demo struct {
		SeedUser bool // Create the demo credential record on startup
		Email    string
		Password string
		Name     string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8180)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("static_path", "./static")

	// Auth defaults
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_token_expiry", "2h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_failure_delay", "600ms")
	v.SetDefault("auth_jwt_secret", "") // Auto-generated if empty
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Demo user defaults
	v.SetDefault("demo_seed_user", false)
	v.SetDefault("demo_user_email", "demo@abu.test")
	v.SetDefault("demo_user_password", "")
	v.SetDefault("demo_user_name", "Demo User")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			StaticPath: v.GetString("STATIC_PATH"),
		},
		Auth: Auth{
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			FailureDelay:     v.GetDuration("AUTH_FAILURE_DELAY"),
			JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Demo: Demo{
			SeedUser: v.GetBool("DEMO_SEED_USER"),
			Email:    v.GetString("DEMO_USER_EMAIL"),
			Password: v.GetString("DEMO_USER_PASSWORD"),
			Name:     v.GetString("DEMO_USER_NAME"),
		},
	}
}
