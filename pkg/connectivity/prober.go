package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/utils/logger"
)

// ProberConfig configures the reachability probe.
type ProberConfig struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
	RetryMax int
}

// Prober periodically checks whether the backend answers at all and writes
// the result into a State. Any HTTP response counts as reachable; only
// transport failures (refused, DNS, timeout) count as offline.
type Prober struct {
	cfg        ProberConfig
	state      *State
	httpClient *retryablehttp.Client
}

func NewProber(cfg ProberConfig, state *State) (*Prober, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("probe url cannot be empty")
	}
	if state == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 1 * time.Second
	client.CheckRetry = retryTransportErrors
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = logger.Leveled()

	log.Debug().
		Str("url", cfg.URL).
		Int("retry_max", client.RetryMax).
		Str("interval", cfg.Interval.String()).
		Str("timeout", cfg.Timeout.String()).
		Msg("connectivity prober initialized")

	return &Prober{cfg: cfg, state: state, httpClient: client}, nil
}

// retryTransportErrors retries only when no response was received.
func retryTransportErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

// Probe performs one check, updates the state and returns the observation.
func (p *Prober) Probe(ctx context.Context) bool {
	online := p.check(ctx)
	if ctx.Err() != nil {
		return p.state.Online()
	}
	if p.state.Set(online) {
		if online {
			log.Info().Str("url", p.cfg.URL).Msg("Connection restored")
		} else {
			log.Warn().Str("url", p.cfg.URL).Msg("Connection lost - switching to fallback mode")
		}
	}
	return online
}

func (p *Prober) check(ctx context.Context) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, p.cfg.URL, nil)
	if err != nil {
		log.Error().Err(err).Str("url", p.cfg.URL).Msg("failed to build probe request")
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", p.cfg.URL).Msg("probe failed")
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Run probes immediately and then on every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
