package hub

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
)

type fakeConn struct {
	received []interface{}
	sendErr  error
	closed   bool
}

func (f *fakeConn) Send(v interface{}) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.received = append(f.received, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "json"})
	return NewHub(log)
}

func TestBroadcastDeliversToAllMembers(t *testing.T) {
	h := newTestHub(t)
	a, b := &fakeConn{}, &fakeConn{}

	h.Register(GlobalScope, a)
	h.Register(GlobalScope, b)
	h.Broadcast(GlobalScope, "hello")

	assert.Equal(t, []interface{}{"hello"}, a.received)
	assert.Equal(t, []interface{}{"hello"}, b.received)
}

func TestBroadcastToEmptyScopeIsNoOp(t *testing.T) {
	h := newTestHub(t)

	// Must not panic and must not create a scope entry.
	h.Broadcast(UnitScope(7), "ignored")
	assert.Equal(t, 0, h.Subscribers(UnitScope(7)))
}

func TestUnregisterLastSubscriberDiscardsScope(t *testing.T) {
	h := newTestHub(t)
	scope := UnitScope(1)
	c := &fakeConn{}

	h.Register(scope, c)
	require.Equal(t, 1, h.Subscribers(scope))

	h.Unregister(scope, c)
	assert.Equal(t, 0, h.Subscribers(scope))

	// A broadcast after the scope is discarded attempts no delivery.
	h.Broadcast(scope, "late")
	assert.Empty(t, c.received)
}

func TestUnregisterUnknownConnectionIsSafe(t *testing.T) {
	h := newTestHub(t)
	h.Unregister(UnitScope(3), &fakeConn{})
	h.Register(UnitScope(3), &fakeConn{})
	h.Unregister(UnitScope(3), &fakeConn{}) // not a member
	assert.Equal(t, 1, h.Subscribers(UnitScope(3)))
}

func TestFailingConnectionIsPrunedAfterOneBroadcast(t *testing.T) {
	h := newTestHub(t)
	scope := UnitScope(2)
	healthy := &fakeConn{}
	broken := &fakeConn{sendErr: errors.New("write: broken pipe")}

	h.Register(scope, healthy)
	h.Register(scope, broken)

	h.Broadcast(scope, "msg")

	// The healthy member still received the message in the same call.
	assert.Equal(t, []interface{}{"msg"}, healthy.received)
	// The broken one is removed and closed after exactly one broadcast.
	assert.Equal(t, 1, h.Subscribers(scope))
	assert.True(t, broken.closed)

	h.Broadcast(scope, "again")
	assert.Equal(t, []interface{}{"msg", "again"}, healthy.received)
}

func TestScopesAreIndependent(t *testing.T) {
	h := newTestHub(t)
	dash, graph := &fakeConn{}, &fakeConn{}

	h.Register(GlobalScope, dash)
	h.Register(UnitScope(1), graph)

	h.Broadcast(UnitScope(1), "series")
	assert.Empty(t, dash.received)
	assert.Equal(t, []interface{}{"series"}, graph.received)
}
