package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/config"
	"github.com/tensorplex-labs/cfo/internal/mockserver"
	"github.com/tensorplex-labs/cfo/internal/utils/logger"
)

func main() {
	logger.Init()
	log.Info().Msg("Starting mock CFO backend...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	srv, err := mockserver.NewServer(cfg.MockServerEnvConfig, mockserver.WithMetrics(prometheus.DefaultGatherer))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init mock server")
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("mock server stopped with error")
	}
	log.Info().Msg("mock server stopped")
}
