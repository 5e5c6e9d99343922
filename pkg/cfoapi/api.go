// Package cfoapi is the AI CFO dashboard client. It maps each dashboard
// operation to an endpoint of the resilient apiclient and decodes the
// resulting documents into model types.
package cfoapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/session"
	"github.com/tensorplex-labs/cfo/pkg/apiclient"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

// DemoToken marks a session created while the backend was unreachable. It
// is never sent as a bearer token.
const DemoToken = "demo_token"

const (
	DefaultScenario     = "realistic"
	DefaultMonths       = 6
	DefaultExportFormat = "csv"
)

// Response is a decoded document plus where it came from.
type Response[T any] struct {
	Data     T
	Source   apiclient.Source
	Degraded bool
	Reason   apiclient.Reason
	Attempts int
}

type FinancialAPI struct {
	client       *apiclient.Client
	store        session.Store
	now          func() time.Time
	progressStep time.Duration
}

func New(client *apiclient.Client, store session.Store, opts ...Option) *FinancialAPI {
	if store == nil {
		store = session.NewMemoryStore()
	}
	a := &FinancialAPI{
		client:       client,
		store:        store,
		now:          time.Now,
		progressStep: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *FinancialAPI) Client() *apiclient.Client { return a.client }

func (a *FinancialAPI) IsOnline() bool { return a.client.Online() }

func (a *FinancialAPI) GetFinancials(ctx context.Context) (Response[model.FinancialSummary], error) {
	return fetch[model.FinancialSummary](ctx, a, EndpointFinancials, apiclient.NewRequest(http.MethodGet, PathFinancials))
}

func (a *FinancialAPI) GetRisks(ctx context.Context) (Response[model.RiskAssessment], error) {
	return fetch[model.RiskAssessment](ctx, a, EndpointRisks, apiclient.NewRequest(http.MethodGet, PathRisks))
}

func (a *FinancialAPI) GetMonitoringData(ctx context.Context, filters url.Values) (Response[model.MonitoringData], error) {
	desc := apiclient.NewRequest(http.MethodGet, PathMonitoring).WithQuery(filters)
	return fetch[model.MonitoringData](ctx, a, EndpointMonitoring, desc)
}

func (a *FinancialAPI) GetAnomalies(ctx context.Context, filters url.Values) (Response[model.AnomalyReport], error) {
	desc := apiclient.NewRequest(http.MethodGet, PathAnomalies).WithQuery(filters)
	return fetch[model.AnomalyReport](ctx, a, EndpointAnomalies, desc)
}

// GetForecast defaults to the realistic scenario over six months.
func (a *FinancialAPI) GetForecast(ctx context.Context, scenario string, months int) (Response[model.Forecast], error) {
	if scenario == "" {
		scenario = DefaultScenario
	}
	if months <= 0 {
		months = DefaultMonths
	}
	desc := apiclient.NewRequest(http.MethodGet, PathForecast).WithQuery(url.Values{
		"scenario": {scenario},
		"months":   {strconv.Itoa(months)},
	})
	return fetch[model.Forecast](ctx, a, EndpointForecast, desc)
}

// ExportData defaults to csv. Supported formats are csv, xlsx and pdf.
func (a *FinancialAPI) ExportData(ctx context.Context, format string) (Response[model.ExportResult], error) {
	if format == "" {
		format = DefaultExportFormat
	}
	desc := apiclient.NewRequest(http.MethodGet, PathExport).WithQuery(url.Values{"format": {format}})
	return fetch[model.ExportResult](ctx, a, EndpointExport, desc)
}

// AskQuestion has no fallback: when the backend cannot answer the error
// matches apiclient.ErrNoFallback.
func (a *FinancialAPI) AskQuestion(ctx context.Context, question string) (Response[model.Answer], error) {
	if question == "" {
		return Response[model.Answer]{}, errors.New("question cannot be empty")
	}
	desc := apiclient.NewRequest(http.MethodPost, PathQuery).WithBody(model.QueryRequest{Query: question})
	return fetch[model.Answer](ctx, a, EndpointAsk, desc)
}

func fetch[T any](ctx context.Context, a *FinancialAPI, endpoint apiclient.EndpointID, desc apiclient.RequestDescriptor) (Response[T], error) {
	desc = desc.WithHeaders(a.authHeaders(ctx))

	res, err := a.client.Do(ctx, endpoint, desc)
	if err != nil {
		return Response[T]{Reason: res.Reason, Attempts: res.Attempts}, err
	}

	data, err := apiclient.Decode[T](res)
	if err != nil {
		log.Error().Err(err).Str("endpoint", string(endpoint)).Str("source", string(res.Source)).Msg("failed to decode response")
		return Response[T]{Source: res.Source, Degraded: res.Degraded, Reason: res.Reason, Attempts: res.Attempts}, err
	}
	return Response[T]{
		Data:     data,
		Source:   res.Source,
		Degraded: res.Degraded,
		Reason:   res.Reason,
		Attempts: res.Attempts,
	}, nil
}

// authHeaders returns the bearer header for a real session token.
func (a *FinancialAPI) authHeaders(ctx context.Context) map[string]string {
	s, err := a.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			log.Warn().Err(err).Msg("failed to load session")
		}
		return nil
	}
	if s.Token == "" || s.Token == DemoToken {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + s.Token}
}
