package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/middleware"
	ingest "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Ingest"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

// InternalController accepts readings forwarded by the MQTT ingestor service
type InternalController struct {
	ingestService *ingest.Service
	serviceSecret string
	logger        *logger.Logger
}

// NewInternalController creates a new internal controller
func NewInternalController(ingestService *ingest.Service, serviceSecret string, log *logger.Logger) *InternalController {
	return &InternalController{
		ingestService: ingestService,
		serviceSecret: serviceSecret,
		logger:        log.WithComponent("internal_controller"),
	}
}

// RegisterRoutes registers the internal routes with Gin
func (c *InternalController) RegisterRoutes(router *gin.Engine) {
	internal := router.Group("/internal", middleware.ServiceAuthMiddleware(c.serviceSecret))
	{
		internal.POST("/readings", c.SubmitReading)
	}
}

type InternalReadingRequest struct {
	UnitID int `json:"unit_ID" binding:"required"`
	bsnmodels.ReadingFields
}

// SubmitReading ingests a reading forwarded from the MQTT broker
func (c *InternalController) SubmitReading(ctx *gin.Context) {
	var req InternalReadingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := c.ingestService.Ingest(ctx.Request.Context(), req.UnitID, req.ReadingFields)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, state)
}
