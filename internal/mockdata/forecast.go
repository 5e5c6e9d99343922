package mockdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

const (
	DefaultScenario = "realistic"
	DefaultMonths   = 6
	MaxMonths       = 24
)

type scenarioFactors struct {
	revenue float64
	expense float64
	note    string
}

var scenarios = map[string]scenarioFactors{
	"optimistic":  {revenue: 1.25, expense: 0.95, note: "Revenue trend accelerates 25% with flat hiring"},
	"realistic":   {revenue: 1.0, expense: 1.0, note: "Revenue and expenses follow the six-month trend"},
	"pessimistic": {revenue: 0.6, expense: 1.1, note: "Revenue growth slows 40% while costs rise 10%"},
}

// ValidScenario reports whether name is a known forecast scenario.
func ValidScenario(name string) bool {
	_, ok := scenarios[strings.ToLower(name)]
	return ok
}

// Forecast projects inflow, outflow and cash balance from the cash-flow
// history using a linear trend scaled by the scenario.
func Forecast(scenario string, months int) (model.Forecast, error) {
	if scenario == "" {
		scenario = DefaultScenario
	}
	scenario = strings.ToLower(scenario)
	f, ok := scenarios[scenario]
	if !ok {
		return model.Forecast{}, fmt.Errorf("unknown scenario %q", scenario)
	}
	if months <= 0 {
		months = DefaultMonths
	}
	if months > MaxMonths {
		return model.Forecast{}, fmt.Errorf("months must be at most %d", MaxMonths)
	}

	inflow := make([]float64, len(cashFlowHistory))
	outflow := make([]float64, len(cashFlowHistory))
	for i, p := range cashFlowHistory {
		inflow[i] = p.Inflow
		outflow[i] = p.Outflow
	}
	revAlpha, revBeta := trendLine(inflow)
	expAlpha, expBeta := trendLine(outflow)

	n := len(cashFlowHistory)
	balance := float64(cashOnHand)
	points := make([]model.ForecastPoint, 0, months)
	for i := range months {
		x := float64(n + i)
		revBase := revAlpha + revBeta*float64(n-1)
		expBase := expAlpha + expBeta*float64(n-1)
		rev := revBase + revBeta*f.revenue*(x-float64(n-1))
		exp := (expBase + expBeta*(x-float64(n-1))) * f.expense
		balance += rev - exp
		points = append(points, model.ForecastPoint{
			Month:       time.Month((n+i)%12 + 1).String()[:3],
			Revenue:     round2(rev),
			Expenses:    round2(exp),
			CashBalance: round2(balance),
		})
	}

	return model.Forecast{
		Success:     true,
		Scenario:    scenario,
		Months:      months,
		Projections: points,
		Assumptions: []string{f.note, fmt.Sprintf("Opening cash balance of %d", cashOnHand)},
	}, nil
}
