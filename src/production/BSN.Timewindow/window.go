package timewindow

import (
	"fmt"
	"time"

	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

// Window is a bounded time interval used to scope history queries. Start is
// inclusive; End is the last instant still covered by the window. Queries
// select created_at in [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Resolver computes the current reporting-day window: a 24h interval anchored
// at a configured cutover time in a fixed local zone. Stored timestamps are
// UTC; the resolver converts between the two zones.
type Resolver struct {
	loc     *time.Location
	cutover time.Duration // offset from local midnight
}

// NewResolver builds a resolver from the window configuration.
func NewResolver(cfg config.WindowConfig) (*Resolver, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cutover, err := config.ParseCutover(cfg.Cutover)
	if err != nil {
		return nil, err
	}
	return &Resolver{loc: loc, cutover: cutover}, nil
}

// Location returns the configured local zone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// CurrentWindow returns the reporting day containing now. The window starts
// at the most recent cutover at or before now (local time) and spans 24h.
// Bounds are returned in UTC for querying the store.
func (r *Resolver) CurrentWindow(now time.Time) Window {
	local := now.In(r.loc)
	y, m, d := local.Date()
	anchor := time.Date(y, m, d, 0, 0, 0, 0, r.loc).Add(r.cutover)
	if local.Before(anchor) {
		anchor = anchor.AddDate(0, 0, -1)
	}
	start := anchor.UTC()
	return Window{
		Start: start,
		End:   start.Add(24*time.Hour - time.Nanosecond),
	}
}

// ParseWindow parses caller-supplied zone-aware ISO-8601 bounds.
func (r *Resolver) ParseWindow(startStr, endStr string) (Window, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start_time %q", bsnmodels.ErrInvalidTimeFormat, startStr)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end_time %q", bsnmodels.ErrInvalidTimeFormat, endStr)
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// MonthWindow returns the full-month window for the given month and year,
// anchored at local midnight of the first day.
func (r *Resolver) MonthWindow(year, month int) Window {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, r.loc)
	return Window{
		Start: start.UTC(),
		End:   start.AddDate(0, 1, 0).UTC(),
	}
}
