package bsningestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	"gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.IngestorService/client"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

// queuedReading is a parsed MQTT reading waiting to be forwarded
type queuedReading struct {
	UnitID     int
	Fields     bsnmodels.ReadingFields
	ReceivedAt time.Time
}

// Ingestor bridges board readings from the MQTT broker to the dashboard API.
// Boards that cannot reach the HTTP endpoint directly publish to
// boards/<unit_ID>/readings instead.
type Ingestor struct {
	cfg        config.IngestorConfig
	apiClient  *client.APIClient
	mqttClient mqtt.Client
	msgCh      chan queuedReading
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	logger     *logger.Logger
}

func New(cfg config.IngestorConfig, apiClient *client.APIClient, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		apiClient: apiClient,
		msgCh:     make(chan queuedReading, 4096),
		done:      make(chan struct{}),
		logger:    log,
	}
}

func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.brokerURL()).
		SetClientID(i.cfg.MQTT.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(i.cfg.MQTT.KeepAlive).
		SetPingTimeout(i.cfg.MQTT.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if i.cfg.MQTT.BrokerUser != "" {
		opts.SetUsername(i.cfg.MQTT.BrokerUser)
		opts.SetPassword(i.cfg.MQTT.BrokerPass)
	}

	if i.cfg.MQTT.UseTLS {
		tlsCfg, err := i.tlsConfig(i.cfg.MQTT.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.cfg.MQTT.Topic
		if i.cfg.MQTT.SharedGroup != "" {
			topic = fmt.Sprintf("$share/%s/%s", i.cfg.MQTT.SharedGroup, i.cfg.MQTT.Topic)
		}
		i.logger.Logger.Info().Str("topic", topic).Msg("MQTT connected, subscribing to topic")
		if token := c.Subscribe(topic, 1, i.onMessage); token.Wait() && token.Error() != nil {
			i.logger.Logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		}
	}

	i.mqttClient = mqtt.NewClient(opts)
	if tk := i.mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.forwarder(ctx)
	}()

	return nil
}

// Stop disconnects from the broker and waits for the forwarder to drain. The
// queue itself is never closed: an MQTT handler still in flight after the
// disconnect quiesce window may attempt one last send, which the done channel
// turns into a drop instead of a panic.
func (i *Ingestor) Stop() {
	i.stopOnce.Do(func() {
		if i.mqttClient != nil && i.mqttClient.IsConnected() {
			i.mqttClient.Disconnect(500)
		}
		close(i.done)
		i.wg.Wait()
	})
}

func (i *Ingestor) IsConnected() bool {
	return i.mqttClient != nil && i.mqttClient.IsConnected()
}

func (i *Ingestor) onMessage(_ mqtt.Client, m mqtt.Message) {
	i.logger.Logger.Debug().Str("topic", m.Topic()).Str("payload", string(m.Payload())).Msg("Received MQTT message")

	// Expected format: boards/<unit_ID>/readings
	parts := strings.Split(m.Topic(), "/")
	if len(parts) < 3 {
		i.logger.Logger.Warn().Str("topic", m.Topic()).Str("expected", "boards/<unit_ID>/readings").Msg("Invalid topic format")
		i.publishError("unknown", "invalid_topic", fmt.Sprintf("Invalid topic format: %s, expected: boards/<unit_ID>/readings", m.Topic()))
		return
	}

	unitID, err := strconv.Atoi(parts[1])
	if err != nil {
		i.logger.Logger.Warn().Str("topic", m.Topic()).Msg("Non-numeric unit_ID in topic")
		i.publishError(parts[1], "invalid_unit", fmt.Sprintf("Non-numeric unit_ID in topic: %s", m.Topic()))
		return
	}

	var fields bsnmodels.ReadingFields
	if err := json.Unmarshal(m.Payload(), &fields); err != nil {
		i.logger.Logger.Warn().Err(err).Int("unit_ID", unitID).Msg("Malformed reading payload")
		i.publishError(parts[1], "invalid_payload", fmt.Sprintf("Malformed reading payload: %v", err))
		return
	}

	i.logger.Logger.Debug().Int("unit_ID", unitID).Msg("Queuing reading")
	select {
	case i.msgCh <- queuedReading{
		UnitID:     unitID,
		Fields:     fields,
		ReceivedAt: time.Now().UTC(),
	}:
	case <-i.done:
		i.logger.Logger.Warn().Int("unit_ID", unitID).Msg("Dropping reading received during shutdown")
	}
}

// forwarder drains the queue and submits readings to the API service. Ingest
// order per unit is preserved by the API's own serialization, so a single
// sequential forwarder is enough here.
func (i *Ingestor) forwarder(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-i.done:
			// Flush whatever was queued before shutdown began.
			for {
				select {
				case rd := <-i.msgCh:
					i.submit(ctx, rd)
				default:
					return
				}
			}
		case rd := <-i.msgCh:
			i.submit(ctx, rd)
		}
	}
}

func (i *Ingestor) submit(ctx context.Context, rd queuedReading) {
	if err := i.apiClient.SubmitReading(ctx, rd.UnitID, rd.Fields); err != nil {
		i.logger.Logger.Error().Err(err).Int("unit_ID", rd.UnitID).Msg("Error submitting reading to API")
		i.publishError(strconv.Itoa(rd.UnitID), "submit_error", fmt.Sprintf("Failed to submit reading: %v", err))
	}
}

func (i *Ingestor) brokerURL() string {
	scheme := "tcp"
	if i.cfg.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, i.cfg.MQTT.BrokerHost, i.cfg.MQTT.BrokerPort)
}

func (i *Ingestor) tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}

// publishError publishes an error message to the error topic for board feedback
func (i *Ingestor) publishError(unitID, errorType, message string) {
	if i.mqttClient == nil || !i.mqttClient.IsConnected() {
		return
	}

	errorPayload := map[string]interface{}{
		"error_type": errorType,
		"message":    message,
		"unit_ID":    unitID,
		"timestamp":  time.Now().UTC(),
	}

	payloadJSON, err := json.Marshal(errorPayload)
	if err != nil {
		i.logger.Logger.Error().Err(err).Msg("Failed to marshal error payload")
		return
	}

	errorTopic := fmt.Sprintf("ingestor/errors/%s", unitID)
	token := i.mqttClient.Publish(errorTopic, 1, false, payloadJSON)

	if token.Wait() && token.Error() != nil {
		i.logger.Logger.Error().Err(token.Error()).Str("topic", errorTopic).Msg("Failed to publish error")
	}
}
