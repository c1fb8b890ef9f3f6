package bsningestor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newTestIngestor() *Ingestor {
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "json"})
	return New(config.IngestorConfig{}, nil, log)
}

func TestOnMessageQueuesValidReading(t *testing.T) {
	i := newTestIngestor()

	i.onMessage(nil, &fakeMessage{topic: "boards/7/readings", payload: []byte(`{"t":25}`)})

	require.Len(t, i.msgCh, 1)
	rd := <-i.msgCh
	assert.Equal(t, 7, rd.UnitID)
	require.NotNil(t, rd.Fields.T)
	assert.Equal(t, 25, *rd.Fields.T)
}

func TestOnMessageDropsMalformedTopicAndPayload(t *testing.T) {
	i := newTestIngestor()

	i.onMessage(nil, &fakeMessage{topic: "boards/7", payload: []byte(`{"t":25}`)})
	i.onMessage(nil, &fakeMessage{topic: "boards/abc/readings", payload: []byte(`{"t":25}`)})
	i.onMessage(nil, &fakeMessage{topic: "boards/7/readings", payload: []byte(`not json`)})

	assert.Empty(t, i.msgCh)
}

func TestOnMessageAfterStopDoesNotPanic(t *testing.T) {
	i := newTestIngestor()
	i.Stop()

	// A handler that outlives the broker disconnect must drop its reading
	// instead of panicking the shutdown.
	assert.NotPanics(t, func() {
		i.onMessage(nil, &fakeMessage{topic: "boards/7/readings", payload: []byte(`{"t":25}`)})
	})
	assert.Empty(t, i.msgCh)
}

func TestStopIsIdempotent(t *testing.T) {
	i := newTestIngestor()

	assert.NotPanics(t, func() {
		i.Stop()
		i.Stop()
	})
}
