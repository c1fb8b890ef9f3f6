package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports dependency health
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[string]interface{}
}

// HealthController serves liveness and readiness probes
type HealthController struct {
	checker HealthChecker
}

// NewHealthController creates a new health controller
func NewHealthController(checker HealthChecker) *HealthController {
	return &HealthController{checker: checker}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", c.Health)
}

// Health returns the service's health status
func (c *HealthController) Health(ctx *gin.Context) {
	status := c.checker.HealthCheck(ctx.Request.Context())
	code := http.StatusOK
	if status["status"] == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	ctx.JSON(code, status)
}
