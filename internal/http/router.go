package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/auth"
	"github.com/abushop/shopfront/internal/cart"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(RequestIDMiddleware())
	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.StrictTransportSecurityMiddleware())

	// Session middleware must run before anything touching session state
	// (CSRF guard included).
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	csrfGuard := auth.CSRFGuard(cfg.SessionManager)

	health := NewHealthController(cfg.Database, cfg.Version)
	sessionAuth := NewSessionAuthController(cfg.AuthService, cfg.SessionManager, cfg.RateLimiter, cfg.Auditor)
	productsController := NewProductsController(cfg.ProductStore)
	cartController := NewCartController(cart.NewCalculator(cfg.ProductStore))
	usersController := NewUsersController(cfg.AuthService, cfg.RateLimiter, cfg.Auditor)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Session + CSRF flow
	router.GET("/api/csrf", sessionAuth.CSRFToken)
	router.POST("/api/login", csrfGuard, sessionAuth.Login)
	router.POST("/api/logout", csrfGuard, sessionAuth.Logout)

	// Catalog and cart
	router.GET("/api/products", productsController.ListProducts)
	router.POST("/api/cart", csrfGuard, cartController.Total)

	// Stateless token flow
	router.POST("/api/users/register", usersController.Register)
	router.POST("/api/users/login", usersController.Login)

	// Static frontend for all other paths
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
		router.NoRoute(staticFallback(cfg.StaticPath))
	}

	return router
}

// staticFallback serves frontend pages directly from the static directory,
// mirroring the catch-all file serving of the original frontend.
func staticFallback(staticPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
			return
		}

		requested := filepath.Clean(c.Request.URL.Path)
		if strings.Contains(requested, "..") {
			c.Status(http.StatusBadRequest)
			return
		}
		if requested == "/" || requested == "." {
			requested = "/index.html"
		}

		full := filepath.Join(staticPath, requested)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			c.File(full)
			return
		}

		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found"})
	}
}
