package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/predictmaint/predictmaint/internal/config"
	"github.com/predictmaint/predictmaint/internal/dashboard/api"
	"github.com/predictmaint/predictmaint/internal/dashboard/server"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	client := api.New(api.Config{
		BaseURL:  config.APIURL(),
		BasePath: config.APIBasePath(),
		Timeout:  config.APITimeout(),
	})
	s := server.New(client, server.Options{StatsInterval: config.StatsInterval()})

	srv := &http.Server{
		Addr:              config.DashboardAddr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("api", config.APIURL()+config.APIBasePath()).Msg("dashboard listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("dashboard exit")
	}
	log.Info().Msg("dashboard stopped")
}
