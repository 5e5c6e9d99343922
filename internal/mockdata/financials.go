// Package mockdata produces the deterministic demo documents served by the
// mock backend and used by the client when an upload cannot reach it.
package mockdata

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

var cashFlowHistory = []model.CashFlowPoint{
	{Month: "Jan", Inflow: 420000, Outflow: 350000},
	{Month: "Feb", Inflow: 380000, Outflow: 340000},
	{Month: "Mar", Inflow: 450000, Outflow: 360000},
	{Month: "Apr", Inflow: 520000, Outflow: 380000},
	{Month: "May", Inflow: 480000, Outflow: 375000},
	{Month: "Jun", Inflow: 590000, Outflow: 390000},
}

const cashOnHand = 3200000

func Financials() model.FinancialSummary {
	return model.FinancialSummary{
		Success: true,
		Data: model.FinancialFigures{
			Revenue:     2450000,
			Expenses:    1850000,
			BurnRate:    185000,
			CashRunway:  18,
			Liabilities: 890000,
		},
		KPIs: map[string]model.KPI{
			"revenue":     {Value: 2450000, Change: 12.5, Trend: "up"},
			"expenses":    {Value: 1850000, Change: 3.2, Trend: "up"},
			"burn_rate":   {Value: 185000, Change: -8.1, Trend: "down"},
			"runway":      {Value: 18, Change: 2, Trend: "up"},
			"cash":        {Value: cashOnHand, Change: 5.7, Trend: "up"},
			"liabilities": {Value: 890000, Change: -2.1, Trend: "down"},
		},
		CashFlow: append([]model.CashFlowPoint(nil), cashFlowHistory...),
	}
}

var severityWeight = map[string]float64{"low": 1, "medium": 2, "high": 3, "critical": 4}

func Risks() model.RiskAssessment {
	risks := []model.Risk{
		{ID: "R-001", Category: "liquidity", Title: "Customer concentration", Severity: "medium", Probability: 0.45,
			Impact: "Top three customers account for 38% of revenue", Mitigation: "Diversify the client base across segments"},
		{ID: "R-002", Category: "operational", Title: "Expense scaling", Severity: "medium", Probability: 0.35,
			Impact: "Personnel costs growing faster than revenue", Mitigation: "Tie hiring plans to revenue milestones"},
		{ID: "R-003", Category: "market", Title: "Currency exposure", Severity: "low", Probability: 0.25,
			Impact: "USD receivables exposed to INR movements", Mitigation: "Hedge forecast receivables quarterly"},
		{ID: "R-004", Category: "credit", Title: "Receivable delays", Severity: "high", Probability: 0.3,
			Impact: "Days sales outstanding rose from 42 to 57", Mitigation: "Tighten payment terms and automate reminders"},
	}

	scores := make([]float64, len(risks))
	for i, r := range risks {
		scores[i] = r.Probability * severityWeight[r.Severity]
	}
	return model.RiskAssessment{
		Success:      true,
		Risks:        risks,
		OverallScore: round2(stat.Mean(scores, nil)),
	}
}

// Monitoring evaluates the sample metrics; the "status" filter keeps only
// metrics in that state.
func Monitoring(filters url.Values) model.MonitoringData {
	metrics := []model.Metric{
		{Name: "cash_balance", Value: cashOnHand, Threshold: 1500000, Unit: "INR", Status: "ok"},
		{Name: "burn_rate", Value: 185000, Threshold: 200000, Unit: "INR", Status: "ok"},
		{Name: "runway_months", Value: 18, Threshold: 12, Unit: "months", Status: "ok"},
		{Name: "gross_margin", Value: 24.5, Threshold: 30, Unit: "percent", Status: "warning"},
		{Name: "dso_days", Value: 57, Threshold: 45, Unit: "days", Status: "critical"},
	}

	var alerts []model.Alert
	for _, m := range metrics {
		if m.Status == "ok" {
			continue
		}
		alerts = append(alerts, model.Alert{
			Level:   m.Status,
			Metric:  m.Name,
			Message: fmt.Sprintf("%s is %.1f against a threshold of %.1f", m.Name, m.Value, m.Threshold),
		})
	}

	if status := filters.Get("status"); status != "" {
		kept := metrics[:0]
		for _, m := range metrics {
			if strings.EqualFold(m.Status, status) {
				kept = append(kept, m)
			}
		}
		metrics = kept
	}

	period := filters.Get("period")
	if period == "" {
		period = "30d"
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return model.MonitoringData{Success: true, Period: period, Metrics: metrics, Alerts: alerts}
}

// Anomalies flags cash-flow months that deviate from the fitted trend. The
// "severity" filter keeps one severity.
func Anomalies(filters url.Values, now time.Time) model.AnomalyReport {
	net := make([]float64, len(cashFlowHistory))
	for i, p := range cashFlowHistory {
		net[i] = p.Inflow - p.Outflow
	}
	alpha, beta := trendLine(net)

	anomalies := []model.Anomaly{}
	for i, p := range cashFlowHistory {
		expected := alpha + beta*float64(i)
		if expected == 0 {
			continue
		}
		dev := (net[i] - expected) / expected * 100
		severity := ""
		switch {
		case dev <= -30 || dev >= 30:
			severity = "high"
		case dev <= -15 || dev >= 15:
			severity = "medium"
		default:
			continue
		}
		anomalies = append(anomalies, model.Anomaly{
			ID:               fmt.Sprintf("A-%s", strings.ToUpper(p.Month)),
			Metric:           "net_cash_flow",
			DetectedAt:       now.UTC().AddDate(0, i-len(cashFlowHistory), 0).Format(time.RFC3339),
			Expected:         round2(expected),
			Actual:           net[i],
			DeviationPercent: round2(dev),
			Severity:         severity,
			Description:      fmt.Sprintf("Net cash flow in %s deviates %.1f%% from trend", p.Month, dev),
		})
	}

	if sev := filters.Get("severity"); sev != "" {
		kept := anomalies[:0]
		for _, a := range anomalies {
			if strings.EqualFold(a.Severity, sev) {
				kept = append(kept, a)
			}
		}
		anomalies = kept
	}
	return model.AnomalyReport{Success: true, Anomalies: anomalies}
}

// Export renders the cash-flow history in the requested format. Only csv
// carries inline content.
func Export(format string) model.ExportResult {
	format = strings.ToLower(format)
	if format == "" {
		format = "csv"
	}
	res := model.ExportResult{
		Success:  true,
		Format:   format,
		Filename: "financials." + format,
	}
	switch format {
	case "csv":
		var b strings.Builder
		b.WriteString("month,inflow,outflow,net\n")
		for _, p := range cashFlowHistory {
			fmt.Fprintf(&b, "%s,%.0f,%.0f,%.0f\n", p.Month, p.Inflow, p.Outflow, p.Inflow-p.Outflow)
		}
		res.Content = b.String()
	case "xlsx", "pdf":
		res.Message = fmt.Sprintf("%s export queued", strings.ToUpper(format))
	default:
		return model.ExportResult{Success: false, Format: format, Message: fmt.Sprintf("unsupported export format %q", format)}
	}
	return res
}
