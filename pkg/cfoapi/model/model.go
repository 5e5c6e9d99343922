// Package model holds the JSON documents exchanged with the CFO backend.
package model

type KPI struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
	Trend  string  `json:"trend"`
}

type FinancialFigures struct {
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
	BurnRate    float64 `json:"burn_rate"`
	CashRunway  float64 `json:"cash_runway"`
	Liabilities float64 `json:"liabilities"`
}

type CashFlowPoint struct {
	Month   string  `json:"month"`
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
}

type FinancialSummary struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Data     FinancialFigures `json:"data"`
	KPIs     map[string]KPI   `json:"kpis,omitempty"`
	CashFlow []CashFlowPoint  `json:"cashFlow,omitempty"`
	Mock     bool             `json:"mock,omitempty"`
}

type Risk struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Severity    string  `json:"severity"`
	Probability float64 `json:"probability"`
	Impact      string  `json:"impact"`
	Mitigation  string  `json:"mitigation"`
}

type RiskAssessment struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message,omitempty"`
	Risks        []Risk  `json:"risks"`
	OverallScore float64 `json:"overall_score,omitempty"`
	Mock         bool    `json:"mock,omitempty"`
}

type Metric struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Unit      string  `json:"unit,omitempty"`
	Status    string  `json:"status"`
}

type Alert struct {
	Level   string `json:"level"`
	Metric  string `json:"metric"`
	Message string `json:"message"`
}

type MonitoringData struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Period  string   `json:"period,omitempty"`
	Metrics []Metric `json:"metrics"`
	Alerts  []Alert  `json:"alerts"`
	Mock    bool     `json:"mock,omitempty"`
}

type Anomaly struct {
	ID               string  `json:"id"`
	Metric           string  `json:"metric"`
	DetectedAt       string  `json:"detected_at"`
	Expected         float64 `json:"expected"`
	Actual           float64 `json:"actual"`
	DeviationPercent float64 `json:"deviation_percent"`
	Severity         string  `json:"severity"`
	Description      string  `json:"description"`
}

type AnomalyReport struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Anomalies []Anomaly `json:"anomalies"`
	Mock      bool      `json:"mock,omitempty"`
}

type ForecastPoint struct {
	Month       string  `json:"month"`
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
	CashBalance float64 `json:"cash_balance"`
}

type Forecast struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	Scenario    string          `json:"scenario"`
	Months      int             `json:"months"`
	Projections []ForecastPoint `json:"projections"`
	Assumptions []string        `json:"assumptions,omitempty"`
	Mock        bool            `json:"mock,omitempty"`
}

type ExportResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Format   string `json:"format,omitempty"`
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content,omitempty"`
	Demo     bool   `json:"demo,omitempty"`
}

type QueryRequest struct {
	Query string `json:"query"`
}

type Answer struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChartPoint carries the union of fields used by the dashboard charts;
// each chart type fills a subset.
type ChartPoint struct {
	Month    string  `json:"month,omitempty"`
	Category string  `json:"category,omitempty"`
	Quarter  string  `json:"quarter,omitempty"`
	Color    string  `json:"color,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Inflow   float64 `json:"inflow,omitempty"`
	Outflow  float64 `json:"outflow,omitempty"`
	Revenue  float64 `json:"revenue,omitempty"`
	Costs    float64 `json:"costs,omitempty"`
	Profit   float64 `json:"profit,omitempty"`
}

type Chart struct {
	Title string       `json:"title"`
	Type  string       `json:"type"`
	Data  []ChartPoint `json:"data"`
}

type GraphSet struct {
	UploadTimestamp string           `json:"uploadTimestamp"`
	Filename        string           `json:"filename"`
	Charts          map[string]Chart `json:"charts"`
	Insights        []string         `json:"insights"`
}

type UploadResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	Filename       string    `json:"filename,omitempty"`
	ProcessingTime string    `json:"processingTime,omitempty"`
	Graphs         *GraphSet `json:"graphs,omitempty"`
}

type LoginRequest struct {
	WorkEmail string `json:"work_email"`
	Password  string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	Message     string `json:"message,omitempty"`
}

type RegisterRequest struct {
	FullName    string `json:"full_name"`
	WorkEmail   string `json:"work_email"`
	Password    string `json:"password"`
	JobTitle    string `json:"job_title,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}

// FinancialReport is the set of annual-report figures KPIs are derived from.
// Amounts are in crores.
type FinancialReport struct {
	CompanyName                string  `json:"company_name"`
	FiscalYear                 string  `json:"fiscal_year"`
	RevenueCurrentYear         float64 `json:"revenue_current_year"`
	RevenuePreviousYear        float64 `json:"revenue_previous_year"`
	ProfitAfterTaxCurrentYear  float64 `json:"profit_after_tax_current_year"`
	ProfitAfterTaxPreviousYear float64 `json:"profit_after_tax_previous_year"`
	TotalLiabilities           float64 `json:"total_liabilities"`
	CashReserves               float64 `json:"cash_reserves"`
	NetCashFromOperations      float64 `json:"net_cash_from_operations"`
	TotalCurrentAssets         float64 `json:"total_current_assets"`
	TotalCurrentLiabilities    float64 `json:"total_current_liabilities"`
	TotalEquity                float64 `json:"total_equity"`
}

// KPISet mirrors the dashboard KPI block. Nil means the ratio is undefined.
// RunwayMonths is nil with RunwayUnlimited set when there is no burn.
type KPISet struct {
	RevenueGrowthPercent  *float64 `json:"revenue_growth_percent"`
	ProfitMarginPercent   *float64 `json:"profit_margin_percent"`
	MonthlyNetCashFlow    float64  `json:"monthly_net_cash_flow"`
	MonthlyBurnRate       float64  `json:"monthly_burn_rate"`
	RunwayMonths          *float64 `json:"runway_months"`
	RunwayUnlimited       bool     `json:"runway_unlimited,omitempty"`
	CurrentRatio          *float64 `json:"current_ratio"`
	DebtToEquityRatio     *float64 `json:"debt_to_equity_ratio"`
	ReturnOnEquityPercent *float64 `json:"return_on_equity_percent"`
}
