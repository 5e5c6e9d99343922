// Package apiclient is a resilient access layer for a JSON HTTP backend.
//
// Every request runs through three stages:
//
//  1. a transport attempt under a per-attempt deadline,
//  2. linear-backoff retries for transient failures while online,
//  3. a fallback resolver that substitutes bundled or default data.
//
// Callers only see an error for invalid input, for endpoints without a
// fallback entry (ErrNoFallback), or for uploads that could not complete.
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/telemetry"
	"github.com/tensorplex-labs/cfo/pkg/connectivity"
)

// Client combines transport, retrier and resolver. It is safe for
// concurrent use; requests share no mutable state besides the connectivity
// flag.
type Client struct {
	cfg       ClientConfig
	transport Transport
	state     *connectivity.State
	retrier   *Retrier
	resolver  *Resolver
	metrics   *telemetry.Metrics
	closer    func()
}

type options struct {
	transport Transport
	state     *connectivity.State
	fallbacks map[EndpointID]Fallback
	defaults  map[EndpointID]Payload
	fetcher   StaticFetcher
	sleep     Sleeper
	metrics   *telemetry.Metrics
}

type Option func(*options)

// WithTransport replaces the resty transport, mostly for tests.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithConnectivity shares a connectivity flag with a prober or other clients.
func WithConnectivity(s *connectivity.State) Option {
	return func(o *options) { o.state = s }
}

func WithFallbacks(m map[EndpointID]Fallback) Option {
	return func(o *options) { o.fallbacks = m }
}

func WithDefaults(m map[EndpointID]Payload) Option {
	return func(o *options) { o.defaults = m }
}

func WithStaticFetcher(f StaticFetcher) Option {
	return func(o *options) { o.fetcher = f }
}

func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func New(cfg ClientConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{cfg: cfg, metrics: o.metrics, closer: func() {}}

	if o.transport == nil {
		rt, err := NewRestyTransport(cfg)
		if err != nil {
			return nil, err
		}
		o.transport = rt
		c.closer = rt.Close
	}
	if o.state == nil {
		o.state = connectivity.NewState(true)
	}

	c.transport = o.transport
	c.state = o.state
	c.retrier = NewRetrier(o.transport, o.state, cfg, o.sleep, o.metrics)
	c.resolver = NewResolver(o.fallbacks, o.defaults, o.fetcher)
	return c, nil
}

// Close releases transport resources owned by the client.
func (c *Client) Close() {
	c.closer()
}

func (c *Client) Config() ClientConfig { return c.cfg }

func (c *Client) Online() bool { return c.state.Online() }

func (c *Client) Connectivity() *connectivity.State { return c.state }

// Do fetches endpoint with the full retry and fallback pipeline. A non-nil
// error is either ErrInvalidRequest or a *NoFallbackError.
func (c *Client) Do(ctx context.Context, endpoint EndpointID, desc RequestDescriptor) (Result, error) {
	if err := desc.validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	out := c.retrier.Execute(ctx, endpoint, desc)
	c.metrics.ObserveRequest(string(endpoint), time.Since(start).Seconds())

	if out.OK {
		return Result{Payload: out.Payload, Source: SourceLive, Attempts: out.Attempts}, nil
	}

	var last error
	if out.Last != nil {
		last = out.Last
	}

	payload, source, err := c.resolver.Resolve(ctx, endpoint, last)
	if err != nil {
		log.Error().
			Str("endpoint", string(endpoint)).
			Str("reason", string(out.Reason)).
			Err(err).
			Msg("request failed and no fallback is configured")
		return Result{Attempts: out.Attempts, Reason: out.Reason, LastErr: last}, err
	}

	c.metrics.RecordFallback(string(endpoint), string(source))
	log.Info().
		Str("endpoint", string(endpoint)).
		Str("source", string(source)).
		Str("reason", string(out.Reason)).
		Int("attempts", out.Attempts).
		Msg("serving fallback data")

	return Result{
		Payload:  payload,
		Source:   source,
		Degraded: true,
		Attempts: out.Attempts,
		Reason:   out.Reason,
		LastErr:  last,
	}, nil
}

func (c *Client) Get(ctx context.Context, endpoint EndpointID, path string, query url.Values) (Result, error) {
	return c.Do(ctx, endpoint, NewRequest(http.MethodGet, path).WithQuery(query))
}

func (c *Client) Post(ctx context.Context, endpoint EndpointID, path string, body any) (Result, error) {
	return c.Do(ctx, endpoint, NewRequest(http.MethodPost, path).WithBody(body))
}

func (c *Client) Put(ctx context.Context, endpoint EndpointID, path string, body any) (Result, error) {
	return c.Do(ctx, endpoint, NewRequest(http.MethodPut, path).WithBody(body))
}

func (c *Client) Delete(ctx context.Context, endpoint EndpointID, path string) (Result, error) {
	return c.Do(ctx, endpoint, NewRequest(http.MethodDelete, path))
}
