package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/predictmaint/predictmaint/internal/cloud"
	"github.com/predictmaint/predictmaint/internal/config"
	"github.com/predictmaint/predictmaint/internal/domain"
	"github.com/predictmaint/predictmaint/internal/events"
	"github.com/predictmaint/predictmaint/internal/repository"
	"github.com/predictmaint/predictmaint/internal/service"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, closeStore, err := repository.Open(openCtx, repository.OpenConfig{
		Kind:        config.Store(),
		DSN:         config.DBDSN(),
		AWSRegion:   config.AWSRegion(),
		DynamoTable: config.DynamoTable(),
	})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("store", config.Store()).Msg("store open failed")
	}
	defer closeStore()

	client, err := events.Connect(events.ClientConfig{
		Broker:   config.MQTTBroker(),
		ClientID: config.MQTTClientID() + "-ingestor",
	})
	if err != nil {
		log.Fatal().Err(err).Str("broker", config.MQTTBroker()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	opts := service.Options{}
	if config.EventsEnabled() {
		opts.Events = events.NewMQTTPublisher(client, config.MQTTTopicPredictions())
	}
	if config.UseCloudServices() && config.SNSTopicArn() != "" {
		awsCfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
		if err != nil {
			log.Fatal().Err(err).Msg("aws config failed")
		}
		opts.Alerts = cloud.NewSNSClient(awsCfg, config.SNSTopicArn())
	}
	svcs := service.New(store, opts)

	ingest := func(r domain.Reading) {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		res, err := svcs.Predictions.PredictReading(rctx, r)
		if err != nil {
			log.Error().Err(err).Str("machine_id", r.MachineID).Msg("ingest failed")
			return
		}
		log.Debug().
			Str("machine_id", r.MachineID).
			Int("prediction", res.Prediction).
			Float64("confidence", res.Confidence).
			Bool("event_sent", res.EventSent).
			Msg("reading ingested")
	}
	onErr := func(err error) { log.Warn().Err(err).Msg("reading dropped") }

	if err := events.SubscribeReadings(client, config.MQTTTopicReadings(), ingest, onErr); err != nil {
		log.Fatal().Err(err).Msg("subscribe failed")
	}

	log.Info().Str("topic", config.MQTTTopicReadings()).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("ingestor stopped")
}
