package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	ingest "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Ingest"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	timewindow "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Timewindow"
)

// Ingest and the graph feed wired together against one in-memory store.
func newPipeline(t *testing.T) (*ingest.Service, *Feed, *hub.Hub, *fakeBoards, *timewindow.Resolver) {
	t.Helper()
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "json"})
	resolver, err := timewindow.NewResolver(config.WindowConfig{Cutover: "08:30", Timezone: "Asia/Kolkata"})
	require.NoError(t, err)

	boards := newFakeBoards()
	h := hub.NewHub(log)
	feed := NewFeed(boards, h, resolver, log)
	svc := ingest.NewService(boards, h, feed, log)
	return svc, feed, h, boards, resolver
}

func intPtr(v int) *int { return &v }

func TestIngestThenQueryIncludesReadingAsLastElement(t *testing.T) {
	svc, feed, _, boards, resolver := newPipeline(t)
	boards.states[1] = bsnmodels.BoardState{UnitID: 1}

	window := resolver.CurrentWindow(time.Now())
	// Pre-existing entries earlier in the window.
	boards.readings = []bsnmodels.Reading{
		{UnitID: 1, T: 18, H: 40, CreatedAt: window.Start.Add(time.Second)},
		{UnitID: 1, T: 19, H: 45, CreatedAt: window.Start.Add(2 * time.Second)},
	}

	_, err := svc.Ingest(context.Background(), 1, bsnmodels.ReadingFields{T: intPtr(25), H: intPtr(60)})
	require.NoError(t, err)

	series, err := feed.Query(context.Background(), 1, resolver.CurrentWindow(time.Now()))
	require.NoError(t, err)

	require.Len(t, series, 3)
	last := series[len(series)-1]
	assert.Equal(t, 25, last.Temperature)
	assert.Equal(t, 60, last.Humidity)
	for i := 1; i < len(series); i++ {
		assert.False(t, series[i].Time.Before(series[i-1].Time))
	}
}

func TestRoundTripSingleReading(t *testing.T) {
	svc, feed, _, boards, _ := newPipeline(t)
	boards.states[1] = bsnmodels.BoardState{UnitID: 1}

	before := time.Now().UTC().Add(-time.Second)
	state, err := svc.Ingest(context.Background(), 1, bsnmodels.ReadingFields{T: intPtr(25), H: intPtr(60), X: intPtr(1), Y: intPtr(1)})
	require.NoError(t, err)
	after := time.Now().UTC().Add(time.Second)

	series, err := feed.Query(context.Background(), 1, timewindow.Window{Start: before, End: after})
	require.NoError(t, err)

	require.Len(t, series, 1)
	assert.Equal(t, 25, series[0].Temperature)
	assert.Equal(t, 60, series[0].Humidity)
	assert.True(t, series[0].Time.Equal(state.UpdatedAt))
}

func TestIngestPushesToGraphSubscribers(t *testing.T) {
	svc, _, h, boards, _ := newPipeline(t)
	boards.states[1] = bsnmodels.BoardState{UnitID: 1}

	subscriber := &recordConn{}
	h.Register(hub.UnitScope(1), subscriber)

	_, err := svc.Ingest(context.Background(), 1, bsnmodels.ReadingFields{T: intPtr(25), H: intPtr(60)})
	require.NoError(t, err)

	require.Len(t, subscriber.received, 1)
	payload := subscriber.received[0].(map[string]interface{})
	rows := payload["data"].([][]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, 60, rows[1][1])
	assert.Equal(t, 25, rows[1][2])
}
