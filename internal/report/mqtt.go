package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"ft8spotter/go-spotter/internal/model"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "ft8spotter/spots"

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes every spot as JSON at QoS 0.
type MQTTPublisher struct {
	client  publisher
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	close   func()
}

// NewMQTTPublisher connects to broker (e.g. tcp://localhost:1883).
func NewMQTTPublisher(broker, topic string, logger *slog.Logger) (*MQTTPublisher, error) {
	clientID := "ft8spotter-" + uuid.NewString()

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt connected", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}

	p := newMQTTPublisher(client, topic, logger)
	p.close = func() { client.Disconnect(250) }
	return p, nil
}

func newMQTTPublisher(client publisher, topic string, logger *slog.Logger) *MQTTPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTPublisher{client: client, topic: topic, timeout: 5 * time.Second, logger: logger}
}

// Report implements Reporter.
func (p *MQTTPublisher) Report(ctx context.Context, spot model.Spot) error {
	data, err := json.Marshal(spot)
	if err != nil {
		return fmt.Errorf("encode spot: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish %s: timed out after %s", p.topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}

	p.logger.Debug("spot published", "topic", p.topic, "callsign", spot.Callsign)
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}
