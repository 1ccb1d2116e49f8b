package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/predictmaint/predictmaint/internal/domain"
)

const publishTimeout = 10 * time.Second

var ErrPublishTimeout = errors.New("events: broker did not acknowledge in time")

// Publisher delivers prediction events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, ev domain.PredictionEvent) error
}

type ClientConfig struct {
	Broker   string
	ClientID string
}

// Connect dials the broker. The client id gets a random suffix so several
// processes can share one configured id.
func Connect(cfg ClientConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8])).
		SetAutoReconnect(true).
		// handlers publish prediction events and wait for the ack
		SetOrderMatters(false).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("events: connect %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// MQTTPublisher publishes each event as JSON to <topic>/<machine_id> with QoS 1.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: strings.TrimSuffix(topic, "/"), timeout: publishTimeout}
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev domain.PredictionEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal prediction event: %w", err)
	}

	topic := MachineTopic(p.topic, ev.MachineID)
	token := p.client.Publish(topic, 1, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("events: publish to %s: %w", topic, err)
	}

	log.Debug().Str("topic", topic).Str("event_id", ev.EventID).Msg("prediction event published")
	return nil
}

// MachineTopic appends the machine id as the last topic level. MQTT wildcards
// and separators are replaced so an id cannot address other topics.
func MachineTopic(base, machineID string) string {
	id := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(machineID)
	if id == "" {
		id = "unknown"
	}
	return base + "/" + id
}
