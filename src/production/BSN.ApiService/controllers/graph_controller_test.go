package controllers

import (
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	graph "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Graph"
	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	timewindow "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Timewindow"
)

func newGraphSocketServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "json"})
	h := hub.NewHub(log)
	resolver, err := timewindow.NewResolver(config.WindowConfig{Cutover: "08:30", Timezone: "UTC"})
	require.NoError(t, err)
	feed := graph.NewFeed(newFakeBoardRepo(), h, resolver, log)

	// Idle timeout far beyond the test window: only an explicit close can
	// release the connection's writer in time.
	hubCfg := config.HubConfig{SendBuffer: 8, IdleTimeout: time.Minute}

	router := gin.New()
	NewGraphController(feed, h, hubCfg, resolver, log).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, h
}

func TestGraphSocketReleasesConnectionOnClientDisconnect(t *testing.T) {
	srv, h := newGraphSocketServer(t)
	scope := hub.UnitScope(1)
	baseline := runtime.NumGoroutine()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/graphdata/1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Subscribers(scope) == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool { return h.Subscribers(scope) == 0 },
		time.Second, 10*time.Millisecond, "subscription dropped when the client goes away")
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= baseline+1 },
		2*time.Second, 20*time.Millisecond, "writer goroutine exits without waiting for the ping interval")
}
