package mockdata

import "github.com/tensorplex-labs/cfo/pkg/cfoapi/model"

// KPIs derives the dashboard ratios from annual-report figures.
func KPIs(r model.FinancialReport) model.KPISet {
	var k model.KPISet

	if r.RevenuePreviousYear > 0 {
		k.RevenueGrowthPercent = ptr(round2((r.RevenueCurrentYear - r.RevenuePreviousYear) / r.RevenuePreviousYear * 100))
	}
	if r.RevenueCurrentYear > 0 {
		k.ProfitMarginPercent = ptr(round2(r.ProfitAfterTaxCurrentYear / r.RevenueCurrentYear * 100))
	}

	monthly := r.NetCashFromOperations / 12
	k.MonthlyNetCashFlow = round2(monthly)
	if monthly < 0 {
		k.MonthlyBurnRate = -round2(monthly)
	}

	if k.MonthlyBurnRate > 0 {
		k.RunwayMonths = ptr(round2(r.CashReserves / k.MonthlyBurnRate))
	} else {
		k.RunwayUnlimited = true
	}

	if r.TotalCurrentLiabilities > 0 {
		k.CurrentRatio = ptr(round2(r.TotalCurrentAssets / r.TotalCurrentLiabilities))
	}
	if r.TotalEquity != 0 {
		k.DebtToEquityRatio = ptr(round2(r.TotalLiabilities / r.TotalEquity))
		k.ReturnOnEquityPercent = ptr(round2(r.ProfitAfterTaxCurrentYear / r.TotalEquity * 100))
	}
	return k
}

// SampleReport is the annual report the demo backend derives KPIs from.
func SampleReport() model.FinancialReport {
	return model.FinancialReport{
		CompanyName:                "Acme Analytics Pvt Ltd",
		FiscalYear:                 "FY24",
		RevenueCurrentYear:         2450,
		RevenuePreviousYear:        2178,
		ProfitAfterTaxCurrentYear:  312,
		ProfitAfterTaxPreviousYear: 241,
		TotalLiabilities:           890,
		CashReserves:               320,
		NetCashFromOperations:      -222,
		TotalCurrentAssets:         1430,
		TotalCurrentLiabilities:    610,
		TotalEquity:                1560,
	}
}
