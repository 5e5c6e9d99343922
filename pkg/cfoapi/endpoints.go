package cfoapi

import (
	"embed"
	"io/fs"

	"github.com/tensorplex-labs/cfo/pkg/apiclient"
)

const (
	EndpointFinancials apiclient.EndpointID = "financial-summary"
	EndpointRisks      apiclient.EndpointID = "risk-assessment"
	EndpointAsk        apiclient.EndpointID = "ask-question"
	EndpointUpload     apiclient.EndpointID = "upload-document"
	EndpointMonitoring apiclient.EndpointID = "monitoring"
	EndpointAnomalies  apiclient.EndpointID = "anomalies"
	EndpointForecast   apiclient.EndpointID = "forecast"
	EndpointExport     apiclient.EndpointID = "export"
	EndpointLogin      apiclient.EndpointID = "login"
	EndpointRegister   apiclient.EndpointID = "register"
)

const (
	PathFinancials = "/api/financials"
	PathRisks      = "/api/risks"
	PathQuery      = "/api/query"
	PathUpload     = "/api/uploadAnnualReportPdf"
	PathMonitoring = "/api/monitoring"
	PathAnomalies  = "/api/anomalies"
	PathForecast   = "/api/forecast"
	PathExport     = "/api/export"
	PathLogin      = "/api/user/login"
	PathRegister   = "/api/user/register"

	// UploadField is the multipart field the backend reads the PDF from.
	UploadField = "pdf_file"
)

//go:embed mock/*.json
var mockBundle embed.FS

// MockFS exposes the bundled fallback documents rooted so that
// "mock/financials.json" resolves.
func MockFS() fs.FS {
	return mockBundle
}

// Fallbacks is the FallbackMap for the dashboard. Endpoints missing here
// (ask-question, login, register) fail with ErrNoFallback.
func Fallbacks() map[apiclient.EndpointID]apiclient.Fallback {
	return map[apiclient.EndpointID]apiclient.Fallback{
		EndpointFinancials: apiclient.Static("/mock/financials.json"),
		EndpointRisks:      apiclient.Static("/mock/risks.json"),
		EndpointMonitoring: apiclient.Static("/mock/monitoring.json"),
		EndpointAnomalies:  apiclient.Static("/mock/anomalies.json"),
		EndpointForecast:   apiclient.Static("/mock/forecast.json"),
		EndpointExport: apiclient.Inline(apiclient.Payload(
			`{"success":false,"demo":true,"message":"Export unavailable offline"}`)),
		EndpointUpload: apiclient.Inline(apiclient.Payload(
			`{"success":false,"message":"Upload unavailable offline"}`)),
	}
}

// Defaults are the last-resort documents, shaped like the live responses.
func Defaults() map[apiclient.EndpointID]apiclient.Payload {
	return map[apiclient.EndpointID]apiclient.Payload{
		EndpointFinancials: apiclient.Payload(`{"success":false,"message":"Financial data unavailable",` +
			`"data":{"revenue":0,"expenses":0,"burn_rate":0,"cash_runway":0,"liabilities":0}}`),
		EndpointRisks:      apiclient.Payload(`{"success":false,"message":"Risk data unavailable","risks":[]}`),
		EndpointMonitoring: apiclient.Payload(`{"success":false,"message":"Monitoring data unavailable","metrics":[],"alerts":[]}`),
		EndpointAnomalies:  apiclient.Payload(`{"success":false,"message":"Anomaly data unavailable","anomalies":[]}`),
		EndpointForecast: apiclient.Payload(`{"success":false,"message":"Forecast unavailable",` +
			`"scenario":"realistic","months":0,"projections":[]}`),
	}
}

// StaticFetcher returns the fetcher for tier-2 resources: the embedded
// bundle, or an HTTP origin when staticBaseURL is set.
func StaticFetcher(staticBaseURL string, opts ...StaticOption) apiclient.StaticFetcher {
	o := staticOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if staticBaseURL == "" {
		return apiclient.FSFetcher{FS: MockFS()}
	}
	return apiclient.NewHTTPFetcher(staticBaseURL, o.timeout)
}

// NewClient builds an apiclient.Client preloaded with the dashboard
// fallback map, defaults and the embedded bundle. opts are applied last and
// may override any of these.
func NewClient(cfg apiclient.ClientConfig, opts ...apiclient.Option) (*apiclient.Client, error) {
	base := []apiclient.Option{
		apiclient.WithFallbacks(Fallbacks()),
		apiclient.WithDefaults(Defaults()),
		apiclient.WithStaticFetcher(StaticFetcher("")),
	}
	return apiclient.New(cfg, append(base, opts...)...)
}
