package mockdata

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

// Graphs builds the dashboard charts shown after an annual report upload.
// Insights are computed from the chart data.
func Graphs(filename string, now time.Time) model.GraphSet {
	revenue := []model.ChartPoint{
		{Month: "Jan", Value: 850000},
		{Month: "Feb", Value: 920000},
		{Month: "Mar", Value: 1100000},
		{Month: "Apr", Value: 980000},
		{Month: "May", Value: 1250000},
		{Month: "Jun", Value: 1400000},
	}
	expenses := []model.ChartPoint{
		{Category: "Operations", Value: 450000, Color: "#ef4444"},
		{Category: "Marketing", Value: 280000, Color: "#f59e0b"},
		{Category: "Personnel", Value: 650000, Color: "#3b82f6"},
		{Category: "Technology", Value: 320000, Color: "#22c55e"},
		{Category: "Other", Value: 150000, Color: "#8b5cf6"},
	}
	cashFlow := []model.ChartPoint{
		{Month: "Jul", Inflow: 1200000, Outflow: 850000},
		{Month: "Aug", Inflow: 1350000, Outflow: 900000},
		{Month: "Sep", Inflow: 1450000, Outflow: 920000},
		{Month: "Oct", Inflow: 1600000, Outflow: 980000},
		{Month: "Nov", Inflow: 1550000, Outflow: 950000},
		{Month: "Dec", Inflow: 1750000, Outflow: 1020000},
	}
	profitability := []model.ChartPoint{
		{Quarter: "Q1", Revenue: 2870000, Costs: 1850000, Profit: 1020000},
		{Quarter: "Q2", Revenue: 3630000, Costs: 2200000, Profit: 1430000},
		{Quarter: "Q3", Revenue: 4100000, Costs: 2450000, Profit: 1650000},
		{Quarter: "Q4", Revenue: 4900000, Costs: 2950000, Profit: 1950000},
	}

	return model.GraphSet{
		UploadTimestamp: now.UTC().Format(time.RFC3339),
		Filename:        filename,
		Charts: map[string]model.Chart{
			"revenue_trend":      {Title: "Revenue Trend Analysis", Type: "line", Data: revenue},
			"expense_breakdown":  {Title: "Expense Breakdown", Type: "pie", Data: expenses},
			"cash_flow_forecast": {Title: "Cash Flow Forecast", Type: "area", Data: cashFlow},
			"profitability":      {Title: "Profitability Analysis", Type: "bar", Data: profitability},
		},
		Insights: insights(expenses, cashFlow, profitability),
	}
}

func insights(expenses, cashFlow, profitability []model.ChartPoint) []string {
	quarterly := make([]float64, len(profitability))
	for i, p := range profitability {
		quarterly[i] = p.Revenue
	}
	growth := stat.Mean(growthRates(quarterly), nil)

	shares := make([]float64, len(expenses))
	for i, e := range expenses {
		shares[i] = e.Value
	}
	top := floats.MaxIdx(shares)

	surplus := 0
	for _, c := range cashFlow {
		if c.Inflow > c.Outflow {
			surplus++
		}
	}
	liquidity := "healthy"
	if surplus < len(cashFlow) {
		liquidity = "tight"
	}

	lastQ := profitability[len(profitability)-1]
	margin := 0.0
	if lastQ.Revenue > 0 {
		margin = lastQ.Profit / lastQ.Revenue * 100
	}

	return []string{
		fmt.Sprintf("Revenue shows strong upward trend with %.0f%% quarter-over-quarter growth", math.Round(growth)),
		fmt.Sprintf("%s costs represent the largest expense category at %.0f%% of total expenses",
			expenses[top].Category, math.Round(share(shares[top], shares))),
		fmt.Sprintf("Cash flow forecast indicates %s liquidity for the next %d months", liquidity, len(cashFlow)),
		fmt.Sprintf("Profit margins are improving, reaching %.0f%% in %s", math.Round(margin), lastQ.Quarter),
	}
}
