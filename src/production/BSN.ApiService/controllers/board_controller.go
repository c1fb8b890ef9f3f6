package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	ingest "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Ingest"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

// BoardController handles board ingest, provisioning, and the live dashboard
// WebSocket.
type BoardController struct {
	ingestService *ingest.Service
	hub           *hub.Hub
	hubConfig     config.HubConfig
	logger        *logger.Logger
	upgrader      websocket.Upgrader
}

// NewBoardController creates a new board controller
func NewBoardController(ingestService *ingest.Service, h *hub.Hub, hubConfig config.HubConfig, log *logger.Logger) *BoardController {
	return &BoardController{
		ingestService: ingestService,
		hub:           h,
		hubConfig:     hubConfig,
		logger:        log.WithComponent("board_controller"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser dashboards connect from a separate origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the board routes with Gin
func (c *BoardController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		// Boards report over GET with query parameters. Firmware constraint:
		// the ESP HTTP client on the boards cannot send request bodies.
		api.GET("/dashboard/:unit_ID", c.IngestReading)
		api.POST("/dashboard/create", c.CreateBoard)
		api.GET("/unitIDs", c.ListUnitIDs)
	}

	router.GET("/ws", c.DashboardSocket)
}

// IngestReading accepts a reading from a board. Absent parameters keep their
// previously reported values.
func (c *BoardController) IngestReading(ctx *gin.Context) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	var fields bsnmodels.ReadingFields
	if err := ctx.ShouldBindQuery(&fields); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := c.ingestService.Ingest(ctx.Request.Context(), unitID, fields)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, state)
}

type CreateBoardRequest struct {
	UnitID int `json:"unit_ID" binding:"required"`
}

// CreateBoard provisions a new board with a zeroed state document
func (c *BoardController) CreateBoard(ctx *gin.Context) {
	var req CreateBoardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := c.ingestService.ProvisionUnit(ctx.Request.Context(), req.UnitID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, state)
}

// ListUnitIDs returns the unit_IDs of all provisioned boards
func (c *BoardController) ListUnitIDs(ctx *gin.Context) {
	ids, err := c.ingestService.ListUnitIDs(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"unit_IDs": ids})
}

type dashboardRequest struct {
	UnitID int `json:"unit_ID"`
}

// DashboardSocket upgrades to a WebSocket and subscribes the client to all
// board state updates. A client may send {"unit_ID": n} at any time to get
// that board's current state on demand.
func (c *BoardController) DashboardSocket(ctx *gin.Context) {
	ws, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.ErrorWithError(err, "websocket upgrade failed")
		return
	}

	conn := hub.NewWSConn(ws, c.hubConfig)
	c.hub.Register(hub.GlobalScope, conn)
	defer conn.Close()
	defer c.hub.Unregister(hub.GlobalScope, conn)

	conn.ReadLoop(func(data []byte) {
		var req dashboardRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.logger.Logger.Debug().Err(err).Msg("ignoring malformed dashboard message")
			return
		}

		state, err := c.ingestService.GetState(ctx.Request.Context(), req.UnitID)
		if err != nil || state == nil {
			_ = conn.Send(gin.H{"error": "unknown unit_ID", "unit_ID": req.UnitID})
			return
		}
		_ = conn.Send(state)
	})
}

func parseUnitID(ctx *gin.Context) (int, error) {
	return strconv.Atoi(ctx.Param("unit_ID"))
}

// respondDomainError maps service errors to HTTP status codes
func respondDomainError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, bsnmodels.ErrUnknownUnit):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, bsnmodels.ErrDuplicateUnit):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, bsnmodels.ErrInvalidTimeFormat):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bsnmodels.ErrNoData):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
