package main

import (
	"context"
	"math"
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/predictmaint/predictmaint/internal/config"
	"github.com/predictmaint/predictmaint/internal/domain"
	"github.com/predictmaint/predictmaint/internal/events"
)

// Sensor ranges. The upper part of each range crosses the maintenance threshold.
const (
	minTemperature = 40.0
	maxTemperature = 100.0
	minHumidity    = 20.0
	maxHumidity    = 90.0
)

func newReading(rng *rand.Rand, machineID string, now time.Time) domain.Reading {
	return domain.Reading{
		MachineID:   machineID,
		Temperature: oneDecimal(minTemperature + rng.Float64()*(maxTemperature-minTemperature)),
		Humidity:    oneDecimal(minHumidity + rng.Float64()*(maxHumidity-minHumidity)),
		Timestamp:   now.UTC(),
	}
}

func oneDecimal(v float64) float64 { return math.Round(v*10) / 10 }

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	machines := config.SimMachines()
	if len(machines) == 0 {
		log.Fatal().Msg("SIM_MACHINES is empty")
	}

	client, err := events.Connect(events.ClientConfig{
		Broker:   config.MQTTBroker(),
		ClientID: config.MQTTClientID() + "-simulator",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	ticker := time.NewTicker(config.SimInterval())
	defer ticker.Stop()

	topic := config.MQTTTopicReadings()
	sent := 0
	for i := 0; i < config.SimCount(); i++ {
		r := newReading(rng, machines[i%len(machines)], time.Now())
		if err := events.PublishReading(client, topic, r); err != nil {
			log.Error().Err(err).Str("machine_id", r.MachineID).Msg("publish failed")
		} else {
			sent++
		}

		select {
		case <-ctx.Done():
			log.Info().Int("sent", sent).Msg("simulation interrupted")
			return
		case <-ticker.C:
		}
	}
	log.Info().Int("sent", sent).Msg("simulation done")
}
