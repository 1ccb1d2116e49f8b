package events

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/predictmaint/predictmaint/internal/domain"
)

// DecodeReading parses a reading payload. When the payload carries no
// machine id, the last topic level is used.
func DecodeReading(topic string, payload []byte) (domain.Reading, error) {
	var r domain.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return domain.Reading{}, fmt.Errorf("events: decode reading: %w", err)
	}
	if r.MachineID == "" {
		if i := strings.LastIndex(topic, "/"); i >= 0 && i < len(topic)-1 {
			r.MachineID = topic[i+1:]
		}
	}
	if r.MachineID == "" {
		return domain.Reading{}, fmt.Errorf("events: reading on %q has no machine id", topic)
	}
	return r, nil
}

// SubscribeReadings subscribes to <topic>/+ and hands every decodable reading to fn.
func SubscribeReadings(client mqtt.Client, topic string, fn func(domain.Reading), onErr func(error)) error {
	filter := strings.TrimSuffix(topic, "/") + "/+"
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		r, err := DecodeReading(msg.Topic(), msg.Payload())
		if err != nil {
			onErr(err)
			return
		}
		fn(r)
	}
	if token := client.Subscribe(filter, 1, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("events: subscribe %s: %w", filter, token.Error())
	}
	return nil
}

// PublishReading is used by the simulator.
func PublishReading(client mqtt.Client, topic string, r domain.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("events: marshal reading: %w", err)
	}
	token := client.Publish(MachineTopic(strings.TrimSuffix(topic, "/"), r.MachineID), 0, false, payload)
	token.Wait()
	return token.Error()
}
