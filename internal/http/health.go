package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abushop/shopfront/internal/database"
	"github.com/abushop/shopfront/internal/entities"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports service readiness: database connectivity and a
// non-empty catalog.
type HealthController struct {
	db      *database.Database
	version string
}

func NewHealthController(db *database.Database, version string) *HealthController {
	return &HealthController{
		db:      db,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db == nil {
		checks["database"] = "not configured"
	} else if err := h.pingDatabase(); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "ok"

		var count int64
		if err := h.db.DB.Model(&entities.Product{}).Count(&count).Error; err != nil {
			checks["catalog"] = "error: " + err.Error()
			status = "unhealthy"
		} else if count == 0 {
			checks["catalog"] = "empty"
			status = "unhealthy"
		} else {
			checks["catalog"] = "ok"
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) pingDatabase() error {
	sqlDB, err := h.db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
