package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Total readings accepted by ingest, labeled by unit
var ReadingsIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bsn_readings_ingested_total",
		Help: "The total number of readings accepted by ingest",
	},
	[]string{"unit"},
)

// History writes that failed after the current-state write succeeded
var HistoryWriteFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bsn_history_write_failures_total",
		Help: "History appends that failed after the current-state upsert succeeded",
	},
)

// Live connections currently registered, labeled by scope kind
var ConnectedClients = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "bsn_connected_clients",
		Help: "Live connections currently registered in the broadcast hub",
	},
	[]string{"scope"},
)

// Broadcast deliveries attempted and failed
var BroadcastSends = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bsn_broadcast_sends_total",
		Help: "Per-connection broadcast deliveries attempted",
	},
)

var BroadcastFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bsn_broadcast_failures_total",
		Help: "Per-connection broadcast deliveries that failed and pruned the connection",
	},
)
