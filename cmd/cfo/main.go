package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/config"
	"github.com/tensorplex-labs/cfo/internal/session"
	"github.com/tensorplex-labs/cfo/internal/telemetry"
	"github.com/tensorplex-labs/cfo/internal/utils/logger"
	"github.com/tensorplex-labs/cfo/pkg/apiclient"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi"
	"github.com/tensorplex-labs/cfo/pkg/connectivity"
)

const usage = `usage: cfo [flags] <command> [args]

commands:
  financials                     financial summary
  risks                          risk assessment
  monitoring [-status -period]   monitoring metrics and alerts
  anomalies [-severity]          detected anomalies
  forecast [-scenario -months]   cash forecast
  export [-format]               export financial data
  ask <question>                 ask the AI CFO
  upload <file.pdf>              upload an annual report
  login -email -password         log in and store the session
  register -name -email -password
  logout                         clear the stored session
  status                         connectivity and session
  watch                          probe connectivity and refresh data until interrupted

flags:
`

type app struct {
	cfg      *config.AppConfig
	api      *cfoapi.FinancialAPI
	state    *connectivity.State
	prober   *connectivity.Prober
	registry *prometheus.Registry
	store    session.Store
}

func main() {
	offline := flag.Bool("offline", false, "skip the backend and serve fallback data")
	level := flag.String("log-level", "", "log level override (trace, debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger.InitWithLevel(*level)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	a, cleanup, err := newApp(cfg, *offline)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize api client")
	}
	defer cleanup()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := a.run(ctx, cmd, args); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			cleanup()
			os.Exit(2)
		}
		log.Error().Err(err).Str("command", cmd).Msg("command failed")
		cleanup()
		os.Exit(1)
	}
}

func newApp(cfg *config.AppConfig, offline bool) (*app, func(), error) {
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	state := connectivity.NewState(!offline && !cfg.StartOffline)
	state.OnChange(metrics.SetOnline)
	metrics.SetOnline(state.Online(), false)

	opts := []apiclient.Option{
		apiclient.WithConnectivity(state),
		apiclient.WithMetrics(metrics),
		apiclient.WithStaticFetcher(cfoapi.StaticFetcher(cfg.StaticBaseURL, cfoapi.WithStaticTimeout(cfg.StaticTimeout))),
	}
	if cfg.FallbackManifest != "" {
		manifest, err := cfoapi.LoadManifest(cfg.FallbackManifest)
		if err != nil {
			return nil, nil, err
		}
		extra, err := manifest.Options()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, extra...)
		log.Info().Str("path", cfg.FallbackManifest).Msg("fallback manifest loaded")
	}

	client, err := cfoapi.NewClient(apiclient.ClientConfig{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.ClientTimeout,
		MaxAttempts:    cfg.RetryAttempts,
		BaseRetryDelay: cfg.RetryDelay,
		Compression:    cfg.Compression,
	}, opts...)
	if err != nil {
		return nil, nil, err
	}

	store, err := session.New(cfg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	var prober *connectivity.Prober
	if !offline {
		prober, err = connectivity.NewProber(connectivity.ProberConfig{
			URL:      cfg.ProbeTarget(),
			Interval: cfg.ProbeInterval,
			Timeout:  cfg.ProbeTimeout,
			RetryMax: cfg.ProbeRetryMax,
		}, state)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
	}

	a := &app{
		cfg:      cfg,
		api:      cfoapi.New(client, store),
		state:    state,
		prober:   prober,
		registry: registry,
		store:    store,
	}
	var once bool
	cleanup := func() {
		if once {
			return
		}
		once = true
		client.Close()
		if c, ok := store.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close session store")
			}
		}
	}
	return a, cleanup, nil
}
