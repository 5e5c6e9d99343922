package cfoapi

import "time"

type staticOptions struct {
	timeout time.Duration
}

type StaticOption func(*staticOptions)

func WithStaticTimeout(d time.Duration) StaticOption {
	return func(o *staticOptions) { o.timeout = d }
}

type Option func(*FinancialAPI)

// WithClock replaces time.Now for session timestamps and generated charts.
func WithClock(now func() time.Time) Option {
	return func(a *FinancialAPI) { a.now = now }
}

// WithSimulatedProgressStep sets the pause between simulated upload
// progress updates. Zero disables the pause.
func WithSimulatedProgressStep(d time.Duration) Option {
	return func(a *FinancialAPI) { a.progressStep = d }
}
