package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ingest "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Ingest"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	interfaces "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Repository/Interfaces"
)

// SettingsController handles per-unit threshold configuration and the unit
// provisioning lifecycle.
type SettingsController struct {
	settingsRepo  interfaces.SettingsRepository
	ingestService *ingest.Service
	logger        *logger.Logger
}

// NewSettingsController creates a new settings controller
func NewSettingsController(settingsRepo interfaces.SettingsRepository, ingestService *ingest.Service, log *logger.Logger) *SettingsController {
	return &SettingsController{
		settingsRepo:  settingsRepo,
		ingestService: ingestService,
		logger:        log.WithComponent("settings_controller"),
	}
}

// RegisterRoutes registers the settings routes with Gin
func (c *SettingsController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/settings")
	{
		api.GET("", c.ListSettings)
		api.GET("/:unit_ID", c.GetSettings)
		api.POST("/add_server", c.AddServer)
		api.PUT("/update_server/:unit_ID", c.UpdateServer)
		api.DELETE("/delete_server/:unit_ID", c.DeleteServer)
	}
}

// ListSettings returns the threshold settings of every provisioned unit
func (c *SettingsController) ListSettings(ctx *gin.Context) {
	settings, err := c.settingsRepo.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"settings": settings})
}

// GetSettings returns a single unit's threshold settings
func (c *SettingsController) GetSettings(ctx *gin.Context) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	settings, err := c.settingsRepo.GetByUnit(ctx.Request.Context(), unitID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "settings not found"})
		return
	}

	ctx.JSON(http.StatusOK, settings)
}

type ThresholdRequest struct {
	// UnitID is optional on add_server; when absent the next free unit_ID
	// is assigned. Ignored on update_server, where the path wins.
	UnitID int `json:"unit_ID"`

	HumidityHigh   float64 `json:"humidity_high"`
	HumidityLow    float64 `json:"humidity_low"`
	TempHigh       float64 `json:"temp_high"`
	TempLow        float64 `json:"temp_low"`
	WaterLevelHigh float64 `json:"water_level_high"`
	WaterLevelLow  float64 `json:"water_level_low"`
}

func (r ThresholdRequest) toSettings(unitID int, now time.Time) bsnmodels.UnitSettings {
	return bsnmodels.UnitSettings{
		UnitID:         unitID,
		HumidityHigh:   r.HumidityHigh,
		HumidityLow:    r.HumidityLow,
		TempHigh:       r.TempHigh,
		TempLow:        r.TempLow,
		WaterLevelHigh: r.WaterLevelHigh,
		WaterLevelLow:  r.WaterLevelLow,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddServer provisions a new unit: stores its thresholds, creates a zeroed
// board state, and announces it to dashboard subscribers. The caller may pick
// the unit_ID; when absent the next free one is assigned.
func (c *SettingsController) AddServer(ctx *gin.Context) {
	var req ThresholdRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unitID := req.UnitID
	if unitID == 0 {
		maxID, err := c.settingsRepo.MaxUnitID(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		unitID = maxID + 1
	}

	state, err := c.ingestService.ProvisionUnit(ctx.Request.Context(), unitID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}

	settings := req.toSettings(unitID, time.Now().UTC())
	if err := c.settingsRepo.Create(ctx.Request.Context(), settings); err != nil {
		// Roll the board state back so a retry does not hit DuplicateUnit
		// for a unit that never got its settings.
		if derr := c.ingestService.DecommissionUnit(ctx.Request.Context(), unitID); derr != nil {
			c.logger.ErrorWithError(derr, "failed to roll back board state after settings write error")
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.logger.Logger.Info().Int("unit_ID", unitID).Msg("unit provisioned")
	ctx.JSON(http.StatusCreated, gin.H{"unit_ID": unitID, "settings": settings, "state": state})
}

// UpdateServer replaces a unit's threshold settings
func (c *SettingsController) UpdateServer(ctx *gin.Context) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	var req ThresholdRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := req.toSettings(unitID, time.Now().UTC())
	updated, err := c.settingsRepo.Update(ctx.Request.Context(), unitID, settings)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !updated {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "settings not found"})
		return
	}

	ctx.JSON(http.StatusOK, settings)
}

// DeleteServer decommissions a unit: removes its thresholds and its board
// state. Reading history is retained.
func (c *SettingsController) DeleteServer(ctx *gin.Context) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	deleted, err := c.settingsRepo.Delete(ctx.Request.Context(), unitID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := c.ingestService.DecommissionUnit(ctx.Request.Context(), unitID); err != nil {
		if !errors.Is(err, bsnmodels.ErrUnknownUnit) {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// No board state either: fall through to the not-found response.
	} else {
		deleted = true
	}

	if !deleted {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"deleted": true, "unit_ID": unitID})
}
