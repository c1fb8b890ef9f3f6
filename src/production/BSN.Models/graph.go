package bsnmodels

import "time"

// GraphPoint is one element of a windowed time series: the reading time plus
// the humidity and temperature channels the graph consumes.
type GraphPoint struct {
	Time        time.Time
	Humidity    int
	Temperature int
}

// GraphSeries is an ascending-by-time sequence of graph points.
type GraphSeries []GraphPoint

// Rows renders the series in the wire layout the dashboard graph expects:
// a header row followed by [iso-local-time, humidity, temperature] rows.
func (s GraphSeries) Rows(loc *time.Location) [][]interface{} {
	rows := make([][]interface{}, 0, len(s)+1)
	rows = append(rows, []interface{}{"Time", "Humidity", "Temperature"})
	for _, p := range s {
		rows = append(rows, []interface{}{p.Time.In(loc).Format(time.RFC3339), p.Humidity, p.Temperature})
	}
	return rows
}

// MonthlyAverage is the result of the full-month aggregate query.
type MonthlyAverage struct {
	UnitID      int     `json:"unit_ID"`
	Month       int     `json:"month"`
	Year        int     `json:"year"`
	AvgTemp     float64 `json:"avg_temp"`
	AvgHumidity float64 `json:"avg_humidity"`
}
