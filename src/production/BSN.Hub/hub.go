package hub

import (
	"strconv"
	"strings"
	"sync"

	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	metrics "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Metrics"
)

// Scope is a broadcast audience: either every dashboard client, or the
// clients subscribed to one unit's graph feed.
type Scope string

// GlobalScope addresses every connected dashboard client.
const GlobalScope Scope = "dashboard"

// UnitScope addresses the graph-feed subscribers of one unit.
func UnitScope(unitID int) Scope {
	return Scope("graph/" + strconv.Itoa(unitID))
}

func (s Scope) kind() string {
	if i := strings.IndexByte(string(s), '/'); i >= 0 {
		return string(s[:i])
	}
	return string(s)
}

// Connection is a live client channel the hub can deliver messages to. Send
// must not block: implementations buffer and report failure when the buffer
// is full or the transport is gone.
type Connection interface {
	Send(v interface{}) error
	Close() error
}

// Hub tracks connected clients per scope and pushes messages to all of them,
// pruning members whose send fails. The hub owns the registration entries;
// the transport layer owns the connections themselves.
type Hub struct {
	mu     sync.RWMutex
	scopes map[Scope]map[Connection]struct{}
	logger *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		scopes: make(map[Scope]map[Connection]struct{}),
		logger: log.WithComponent("hub"),
	}
}

// Register adds a connection to a scope. Registering the same connection
// twice causes double delivery; callers register once per connection.
func (h *Hub) Register(scope Scope, conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.scopes[scope]
	if !ok {
		set = make(map[Connection]struct{})
		h.scopes[scope] = set
	}
	set[conn] = struct{}{}
	metrics.ConnectedClients.WithLabelValues(scope.kind()).Inc()
	h.logger.Logger.Debug().Str("scope", string(scope)).Int("members", len(set)).Msg("connection registered")
}

// Unregister removes a connection from a scope. When the scope's last member
// leaves, the scope entry itself is discarded so nothing is retained for
// units with zero subscribers. Safe to call for connections already removed.
func (h *Hub) Unregister(scope Scope, conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(scope, conn)
}

func (h *Hub) unregisterLocked(scope Scope, conn Connection) {
	set, ok := h.scopes[scope]
	if !ok {
		return
	}
	if _, member := set[conn]; !member {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.scopes, scope)
	}
	metrics.ConnectedClients.WithLabelValues(scope.kind()).Dec()
	h.logger.Logger.Debug().Str("scope", string(scope)).Int("members", len(set)).Msg("connection unregistered")
}

// Subscribers reports how many connections a scope currently holds.
func (h *Hub) Subscribers(scope Scope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scope])
}

// Broadcast delivers message to every connection registered for scope, in
// arbitrary order. A failing connection is logged, closed and removed; the
// remaining members still receive the message. Per-connection failures are
// never surfaced to the caller.
func (h *Hub) Broadcast(scope Scope, message interface{}) {
	h.mu.RLock()
	set, ok := h.scopes[scope]
	if !ok {
		h.mu.RUnlock()
		return
	}
	members := make([]Connection, 0, len(set))
	for conn := range set {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	var failed []Connection
	for _, conn := range members {
		metrics.BroadcastSends.Inc()
		if err := conn.Send(message); err != nil {
			metrics.BroadcastFailures.Inc()
			h.logger.Logger.Warn().Err(err).Str("scope", string(scope)).Msg("send failed, pruning connection")
			failed = append(failed, conn)
		}
	}

	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, conn := range failed {
		h.unregisterLocked(scope, conn)
	}
	h.mu.Unlock()
	for _, conn := range failed {
		_ = conn.Close()
	}
}
