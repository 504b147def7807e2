package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/audit"
	"github.com/abushop/shopfront/internal/auth"
	"github.com/abushop/shopfront/internal/config"
	"github.com/abushop/shopfront/internal/database"
	auditdb "github.com/abushop/shopfront/internal/database/audit"
	"github.com/abushop/shopfront/internal/database/products"
	"github.com/abushop/shopfront/internal/database/users"
	http_controllers "github.com/abushop/shopfront/internal/http"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve starts the HTTP server and blocks until an interrupt or termination
// signal triggers a graceful shutdown.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires configuration, storage, authentication and the router together
// and serves until shutdown.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shopfront v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	userRepo := users.NewRepository(db.DB)
	productRepo := products.NewRepository(db.DB)
	auditor := audit.NewService(auditdb.NewRepository(db.DB))

	authService := auth.NewService(userRepo, cfg.Auth)

	// Seed the demo credential record if configured
	if cfg.Demo.SeedUser {
		if err := seedDemoUser(authService, cfg.Demo); err != nil {
			log.Fatalf("Failed to seed demo user: %v", err)
		}
	}

	// Get underlying SQL DB for the session store
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}

	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	var rateLimiter *auth.RateLimiter
	if cfg.Auth.MaxLoginAttempts > 0 {
		rateLimiter = auth.NewRateLimiter(auth.RateLimitConfig{
			MaxAttempts:     cfg.Auth.MaxLoginAttempts,
			WindowDuration:  cfg.Auth.RateLimitWindow,
			LockoutDuration: cfg.Auth.LockoutDuration,
		})
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		ProductStore:   productRepo,
		AuthService:    authService,
		SessionManager: sessionManager,
		RateLimiter:    rateLimiter,
		Auditor:        auditor,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		if rateLimiter != nil {
			rateLimiter.Stop()
		}
	}

	Serve(router, cfg, onShutdown)
}

func seedDemoUser(authService *auth.Service, cfg config.Demo) error {
	if cfg.Password == "" {
		return errors.New("DEMO_USER_PASSWORD must be set when DEMO_SEED_USER is enabled")
	}

	username := auth.NormalizeIdentifier(cfg.Email)
	if i := strings.IndexByte(username, '@'); i > 0 {
		username = username[:i]
	}

	_, err := authService.CreateUser(username, cfg.Email, cfg.Name, cfg.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return nil
		}
		return err
	}

	log.Printf("Seeded demo user %s", cfg.Email)
	return nil
}
