package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/predictmaint/predictmaint/internal/cloud"
	"github.com/predictmaint/predictmaint/internal/config"
	"github.com/predictmaint/predictmaint/internal/events"
	httpHandlers "github.com/predictmaint/predictmaint/internal/http"
	"github.com/predictmaint/predictmaint/internal/repository"
	"github.com/predictmaint/predictmaint/internal/service"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	// run owns every deferred cleanup; exit only after it returns
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api exit")
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, err := repository.Open(ctx, repository.OpenConfig{
		Kind:        config.Store(),
		DSN:         config.DBDSN(),
		AWSRegion:   config.AWSRegion(),
		DynamoTable: config.DynamoTable(),
	})
	if err != nil {
		return err
	}
	defer closeStore()
	if config.Store() == "memory" {
		log.Warn().Msg("using in-memory store; predictions are lost on restart")
	}

	opts := service.Options{}

	if config.EventsEnabled() {
		client, err := events.Connect(events.ClientConfig{
			Broker:   config.MQTTBroker(),
			ClientID: config.MQTTClientID() + "-api",
		})
		if err != nil {
			// predictions still work without the bus; kafka_sent reports false
			log.Warn().Err(err).Str("broker", config.MQTTBroker()).Msg("event bus unavailable")
		} else {
			defer client.Disconnect(250)
			opts.Events = events.NewMQTTPublisher(client, config.MQTTTopicPredictions())
		}
	}

	if config.UseCloudServices() {
		awsCfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
		if err != nil {
			return err
		}
		opts.Archive = cloud.NewS3Client(awsCfg, config.S3Bucket())
		if arn := config.SNSTopicArn(); arn != "" {
			opts.Alerts = cloud.NewSNSClient(awsCfg, arn)
		}
		log.Info().Str("region", config.AWSRegion()).Str("bucket", config.S3Bucket()).Msg("cloud services enabled")
	}

	svcs := service.New(store, opts)
	app := httpHandlers.NewApp(svcs, config.CORSOrigins())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return serve(app, config.APIAddr(), quit)
}

type server interface {
	Listen(addr string) error
	ShutdownWithTimeout(timeout time.Duration) error
}

// serve listens until a signal arrives or Listen fails, whichever is first.
func serve(srv server, addr string, quit <-chan os.Signal) error {
	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api listening")
		listenErr <- srv.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down api")
	if err := srv.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}
