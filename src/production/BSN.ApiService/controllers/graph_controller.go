package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	graph "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Graph"
	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	timewindow "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Timewindow"
)

// GraphController serves windowed graph data and the per-unit live graph
// WebSocket.
type GraphController struct {
	feed      *graph.Feed
	hub       *hub.Hub
	hubConfig config.HubConfig
	resolver  *timewindow.Resolver
	logger    *logger.Logger
	upgrader  websocket.Upgrader
	now       func() time.Time
}

// NewGraphController creates a new graph controller
func NewGraphController(feed *graph.Feed, h *hub.Hub, hubConfig config.HubConfig, resolver *timewindow.Resolver, log *logger.Logger) *GraphController {
	return &GraphController{
		feed:      feed,
		hub:       h,
		hubConfig: hubConfig,
		resolver:  resolver,
		logger:    log.WithComponent("graph_controller"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// RegisterRoutes registers the graph routes with Gin
func (c *GraphController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/v1/graphdata/:unit_ID", c.GetGraphData)
	router.GET("/ws/graphdata/:unit_ID", c.GraphSocket)
}

// GetGraphData returns the unit's series for the requested window, defaulting
// to the current reporting day when no bounds are given.
func (c *GraphController) GetGraphData(ctx *gin.Context) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	var w timewindow.Window
	startStr := ctx.Query("start_time")
	endStr := ctx.Query("end_time")
	if startStr == "" && endStr == "" {
		w = c.resolver.CurrentWindow(c.now())
	} else {
		w, err = c.resolver.ParseWindow(startStr, endStr)
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
	}

	series, err := c.feed.Query(ctx.Request.Context(), unitID, w)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": c.feed.Rows(series)})
}

// GraphSocket upgrades to a WebSocket and subscribes the client to the
// unit's graph updates. The full current-day series is pushed on every new
// reading; nothing is sent until the next reading arrives.
func (c *GraphController) GraphSocket(ctx *gin.Context) {
	unitID, err := parseUnitID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit_ID"})
		return
	}

	ws, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.ErrorWithError(err, "websocket upgrade failed")
		return
	}

	scope := hub.UnitScope(unitID)
	conn := hub.NewWSConn(ws, c.hubConfig)
	c.hub.Register(scope, conn)
	defer conn.Close()
	defer c.hub.Unregister(scope, conn)

	// Graph clients only listen.
	conn.ReadLoop(nil)
}
