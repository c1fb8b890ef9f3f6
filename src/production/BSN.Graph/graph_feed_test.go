package graph

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	timewindow "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Timewindow"
)

type fakeBoards struct {
	states   map[int]bsnmodels.BoardState
	readings []bsnmodels.Reading
}

func newFakeBoards() *fakeBoards {
	return &fakeBoards{states: make(map[int]bsnmodels.BoardState)}
}

func (f *fakeBoards) GetState(_ context.Context, unitID int) (*bsnmodels.BoardState, error) {
	state, ok := f.states[unitID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (f *fakeBoards) CreateState(_ context.Context, state bsnmodels.BoardState) error {
	f.states[state.UnitID] = state
	return nil
}

func (f *fakeBoards) UpsertState(_ context.Context, state bsnmodels.BoardState) error {
	f.states[state.UnitID] = state
	return nil
}

func (f *fakeBoards) DeleteState(_ context.Context, unitID int) (bool, error) {
	if _, ok := f.states[unitID]; !ok {
		return false, nil
	}
	delete(f.states, unitID)
	return true, nil
}

func (f *fakeBoards) ListUnitIDs(_ context.Context) ([]int, error) {
	ids := make([]int, 0, len(f.states))
	for id := range f.states {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeBoards) InsertReading(_ context.Context, reading bsnmodels.Reading) error {
	f.readings = append(f.readings, reading)
	return nil
}

func (f *fakeBoards) GetReadingsByWindow(_ context.Context, unitID int, start, end time.Time) ([]bsnmodels.Reading, error) {
	var out []bsnmodels.Reading
	for _, r := range f.readings {
		if r.UnitID != unitID {
			continue
		}
		if r.CreatedAt.Before(start) || !r.CreatedAt.Before(end) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type recordConn struct {
	received []interface{}
}

func (c *recordConn) Send(v interface{}) error {
	c.received = append(c.received, v)
	return nil
}

func (c *recordConn) Close() error { return nil }

func newTestFeed(t *testing.T, boards *fakeBoards) (*Feed, *hub.Hub, *timewindow.Resolver) {
	t.Helper()
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "json"})
	resolver, err := timewindow.NewResolver(config.WindowConfig{Cutover: "08:30", Timezone: "Asia/Kolkata"})
	require.NoError(t, err)
	h := hub.NewHub(log)
	return NewFeed(boards, h, resolver, log), h, resolver
}

func TestQueryUnknownUnit(t *testing.T) {
	feed, _, resolver := newTestFeed(t, newFakeBoards())

	_, err := feed.Query(context.Background(), 9, resolver.CurrentWindow(time.Now()))
	assert.True(t, errors.Is(err, bsnmodels.ErrUnknownUnit))
}

func TestQueryOrderedAscendingWithDefaults(t *testing.T) {
	boards := newFakeBoards()
	boards.states[1] = bsnmodels.BoardState{UnitID: 1}
	feed, _, _ := newTestFeed(t, boards)

	base := time.Date(2024, 10, 16, 10, 0, 0, 0, time.UTC)
	// Inserted out of order; missing h/t stay zero.
	boards.readings = []bsnmodels.Reading{
		{UnitID: 1, T: 22, H: 55, CreatedAt: base.Add(2 * time.Minute)},
		{UnitID: 1, CreatedAt: base},
		{UnitID: 1, T: 21, CreatedAt: base.Add(time.Minute)},
		{UnitID: 2, T: 99, H: 99, CreatedAt: base}, // other unit, excluded
	}

	series, err := feed.Query(context.Background(), 1, timewindow.Window{Start: base.Add(-time.Hour), End: base.Add(time.Hour)})
	require.NoError(t, err)

	require.Len(t, series, 3)
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].Time.Before(series[i].Time), "series must ascend by timestamp")
	}
	assert.Equal(t, 0, series[0].Temperature, "missing temperature defaults to 0")
	assert.Equal(t, 0, series[0].Humidity, "missing humidity defaults to 0")
	assert.Equal(t, 22, series[2].Temperature)
}

func TestRowsIncludeHeaderAndLocalTimes(t *testing.T) {
	boards := newFakeBoards()
	boards.states[1] = bsnmodels.BoardState{UnitID: 1}
	feed, _, resolver := newTestFeed(t, boards)

	at := time.Date(2024, 10, 16, 10, 0, 0, 0, time.UTC)
	rows := feed.Rows(bsnmodels.GraphSeries{{Time: at, Humidity: 60, Temperature: 25}})

	require.Len(t, rows, 2)
	assert.Equal(t, []interface{}{"Time", "Humidity", "Temperature"}, rows[0])
	assert.Equal(t, at.In(resolver.Location()).Format(time.RFC3339), rows[1][0])
	assert.Equal(t, 60, rows[1][1])
	assert.Equal(t, 25, rows[1][2])
}

func TestOnNewReadingBroadcastsFullSeriesToUnitScope(t *testing.T) {
	boards := newFakeBoards()
	boards.states[1] = bsnmodels.BoardState{UnitID: 1}
	feed, h, resolver := newTestFeed(t, boards)

	now := time.Date(2024, 10, 16, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time { return now }
	window := resolver.CurrentWindow(now)

	boards.readings = []bsnmodels.Reading{
		{UnitID: 1, T: 20, H: 50, CreatedAt: window.Start.Add(time.Minute)},
		{UnitID: 1, T: 25, H: 60, CreatedAt: window.Start.Add(2 * time.Minute)},
	}

	subscriber := &recordConn{}
	other := &recordConn{}
	h.Register(hub.UnitScope(1), subscriber)
	h.Register(hub.GlobalScope, other)

	feed.OnNewReading(context.Background(), 1, boards.readings[1])

	require.Len(t, subscriber.received, 1)
	payload := subscriber.received[0].(map[string]interface{})
	rows := payload["data"].([][]interface{})
	assert.Len(t, rows, 3, "header plus the full recomputed series, not a delta")
	assert.Empty(t, other.received, "dashboard scope is not the graph audience")
}

func TestOnNewReadingUnknownUnitIsSwallowed(t *testing.T) {
	feed, h, _ := newTestFeed(t, newFakeBoards())
	subscriber := &recordConn{}
	h.Register(hub.UnitScope(5), subscriber)

	// Must not panic and must not push anything.
	feed.OnNewReading(context.Background(), 5, bsnmodels.Reading{UnitID: 5})
	assert.Empty(t, subscriber.received)
}
