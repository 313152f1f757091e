package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"cgt-timeline-backend/internal/analysis"
	"cgt-timeline-backend/internal/cache"
	"cgt-timeline-backend/internal/cch"
)

// HealthHandler health check handler
type HealthHandler struct {
	db       *gorm.DB
	redis    *cache.RedisClient
	analysis *analysis.Client
	cch      *cch.Client
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db *gorm.DB, redis *cache.RedisClient, analysisClient *analysis.Client, cchClient *cch.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, analysis: analysisClient, cch: cchClient}
}

// ComponentCheck component status
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse health check response
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check reports overall status: database, Redis and the external services.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	dbStart := time.Now()
	sqlDB, err := h.db.DB()
	if err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "failed to get database connection",
		}
	} else if err := sqlDB.Ping(); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "database ping failed",
		}
	} else {
		response.Checks["database"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	redisStart := time.Now()
	if err := h.redis.Health(c.Context()); err != nil {
		response.Status = "unhealthy"
		response.Checks["redis"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "redis ping failed",
		}
	} else {
		response.Checks["redis"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(redisStart).String(),
		}
	}

	// External services degrade rather than fail the whole check.
	if h.analysis.Configured() {
		response.Checks["analysis_api"] = ComponentCheck{Status: "configured"}
	} else {
		response.Checks["analysis_api"] = ComponentCheck{Status: "demo_mode"}
	}

	if h.cch.Configured() {
		cchStart := time.Now()
		if err := h.cch.Health(c.Context()); err != nil {
			response.Checks["cch_api"] = ComponentCheck{
				Status: "degraded",
				Error:  "CCH service unreachable",
			}
		} else {
			response.Checks["cch_api"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(cchStart).String(),
			}
		}
	} else {
		response.Checks["cch_api"] = ComponentCheck{Status: "not_configured"}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness simple liveness probe.
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness readiness probe checking the database connection.
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	if err := sqlDB.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}
