package apiclient

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/telemetry"
	"github.com/tensorplex-labs/cfo/pkg/connectivity"
)

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper: a timer, not a busy wait.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome is what the retry loop hands to the client: either a live payload
// or the information the fallback resolver needs.
type Outcome struct {
	Payload  Payload
	OK       bool
	Attempts int
	Reason   Reason
	Last     *FailureError
}

// Retrier runs a transport call up to MaxAttempts times with linear backoff.
type Retrier struct {
	transport   Transport
	state       *connectivity.State
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
	metrics     *telemetry.Metrics
}

func NewRetrier(t Transport, state *connectivity.State, cfg ClientConfig, sleep Sleeper, m *telemetry.Metrics) *Retrier {
	if sleep == nil {
		sleep = SleepContext
	}
	return &Retrier{
		transport:   t,
		state:       state,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseRetryDelay,
		sleep:       sleep,
		metrics:     m,
	}
}

// Backoff is the wait after the given failed attempt (1-based).
func (r *Retrier) Backoff(attempt int) time.Duration {
	return r.baseDelay * time.Duration(attempt)
}

// Execute never returns a network-origin error; failures are reported in
// the Outcome for the fallback resolver.
func (r *Retrier) Execute(ctx context.Context, endpoint EndpointID, desc RequestDescriptor) Outcome {
	if r.state != nil && !r.state.Online() {
		log.Warn().Str("endpoint", string(endpoint)).Msg("offline - using fallback data")
		return Outcome{Reason: ReasonOffline}
	}

	var last *FailureError
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		log.Debug().
			Str("endpoint", string(endpoint)).
			Str("method", desc.method()).
			Str("path", desc.Path).
			Int("attempt", attempt).
			Msg("api request attempt")

		res := r.transport.RoundTrip(ctx, desc)
		r.metrics.RecordAttempt(string(endpoint), res.Kind.String())

		switch res.Kind {
		case OutcomeSuccess:
			log.Debug().Str("endpoint", string(endpoint)).Int("attempt", attempt).Msg("api request successful")
			return Outcome{Payload: res.Payload, OK: true, Attempts: attempt}
		case OutcomeTerminal:
			log.Warn().
				Str("endpoint", string(endpoint)).
				Int("attempt", attempt).
				Err(res.Err).
				Msg("api request failed with terminal error, not retrying")
			reason := ReasonTerminal
			if res.Err != nil && res.Err.Kind == KindCanceled {
				reason = ReasonCanceled
			}
			return Outcome{Attempts: attempt, Reason: reason, Last: res.Err}
		}

		last = res.Err
		if attempt == r.maxAttempts {
			break
		}

		backoff := r.Backoff(attempt)
		log.Warn().
			Str("endpoint", string(endpoint)).
			Int("attempt", attempt).
			Int("max_attempts", r.maxAttempts).
			Int64("backoff_ms", backoff.Milliseconds()).
			Err(last).
			Msg("api request failed, retrying")

		if err := r.sleep(ctx, backoff); err != nil {
			return Outcome{
				Attempts: attempt,
				Reason:   ReasonCanceled,
				Last:     &FailureError{Kind: KindCanceled, Cause: err},
			}
		}
	}

	log.Error().
		Str("endpoint", string(endpoint)).
		Int("attempts", r.maxAttempts).
		Err(last).
		Msg("all api attempts failed")
	return Outcome{Attempts: r.maxAttempts, Reason: ReasonExhausted, Last: last}
}
