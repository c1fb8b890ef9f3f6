package graph

import (
	"context"
	"fmt"
	"time"

	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	interfaces "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Repository/Interfaces"
	timewindow "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Timewindow"
)

// Broadcaster is the hub surface the feed pushes through.
type Broadcaster interface {
	Broadcast(scope hub.Scope, message interface{})
}

// Feed answers windowed time-series queries for a unit and pushes the
// recomputed current-window series to that unit's subscribers whenever a new
// reading arrives.
type Feed struct {
	boards   interfaces.BoardRepository
	hub      Broadcaster
	resolver *timewindow.Resolver
	logger   *logger.Logger
	now      func() time.Time
}

// NewFeed creates a graph feed.
func NewFeed(boards interfaces.BoardRepository, broadcaster Broadcaster, resolver *timewindow.Resolver, log *logger.Logger) *Feed {
	return &Feed{
		boards:   boards,
		hub:      broadcaster,
		resolver: resolver,
		logger:   log.WithComponent("graph"),
		now:      time.Now,
	}
}

// Query fetches the unit's history entries inside the window, ascending by
// timestamp. Absent humidity/temperature values come back as 0.
func (f *Feed) Query(ctx context.Context, unitID int, w timewindow.Window) (bsnmodels.GraphSeries, error) {
	state, err := f.boards.GetState(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: unit_ID %d", bsnmodels.ErrUnknownUnit, unitID)
	}

	readings, err := f.boards.GetReadingsByWindow(ctx, unitID, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	series := make(bsnmodels.GraphSeries, 0, len(readings))
	for _, r := range readings {
		series = append(series, bsnmodels.GraphPoint{
			Time:        r.CreatedAt,
			Humidity:    r.H,
			Temperature: r.T,
		})
	}
	return series, nil
}

// Rows renders a series in the graph wire layout, timestamps in the
// resolver's local zone.
func (f *Feed) Rows(series bsnmodels.GraphSeries) [][]interface{} {
	return series.Rows(f.resolver.Location())
}

// OnNewReading recomputes the unit's current-window series and broadcasts the
// full series (not a delta) to the unit's subscribers. O(window size) per
// update, acceptable for one reporting day of periodic readings. Failures are
// logged, never surfaced to the ingest caller.
func (f *Feed) OnNewReading(ctx context.Context, unitID int, reading bsnmodels.Reading) {
	window := f.resolver.CurrentWindow(f.now())
	series, err := f.Query(ctx, unitID, window)
	if err != nil {
		f.logger.Logger.Error().Err(err).Int("unit_ID", unitID).Msg("current-window recompute failed")
		return
	}
	f.logger.Logger.Debug().
		Int("unit_ID", unitID).
		Time("reading_at", reading.CreatedAt).
		Int("points", len(series)).
		Msg("pushing recomputed series")
	f.hub.Broadcast(hub.UnitScope(unitID), map[string]interface{}{"data": f.Rows(series)})
}
