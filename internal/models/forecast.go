package models

// Day statuses in a cashflow forecast.
const (
	DaySafe      = "safe"
	DayTight     = "tight"
	DayShortfall = "shortfall"
)

// DailyProjection is one day of a rolling cashflow forecast. Amounts are in
// paise.
type DailyProjection struct {
	Date             string   `json:"date"` // YYYY-MM-DD
	ProjectedBalance int64    `json:"projected_balance"`
	IncomeExpected   int64    `json:"income_expected"`
	ExpenseExpected  int64    `json:"expense_expected"`
	ObligationsDue   []string `json:"obligations_due"`
	ObligationAmount int64    `json:"obligation_amount"`
	Status           string   `json:"status"`
}

// IncomeStats summarizes trailing income history.
type IncomeStats struct {
	DailyAverage   int64   `json:"daily_average"`   // paise
	WeekdayAverage int64   `json:"weekday_average"` // paise
	WeekendAverage int64   `json:"weekend_average"` // paise
	WeeklyAverage  int64   `json:"weekly_average"`  // paise
	Volatility     float64 `json:"volatility"`      // coefficient of variation
	SampleDays     int     `json:"sample_days"`
}

// Sparse reports whether the stats rest on fewer sampled days than minDays.
// Forecast and risk both use this as their low-confidence predicate.
func (s IncomeStats) Sparse(minDays int) bool {
	return s.SampleDays < minDays
}

// ForecastResult is the projected timeline plus the derived risk summary.
type ForecastResult struct {
	HorizonDays   int               `json:"horizon_days"`
	Daily         []DailyProjection `json:"daily"`
	Stats         IncomeStats       `json:"income_stats"`
	RiskScore     float64           `json:"risk_score"`
	RiskLevel     string            `json:"risk_level"`
	LowConfidence bool              `json:"low_confidence"`
}

// RiskFactor is one weighted contributor to the composite risk score.
type RiskFactor struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`  // raw factor, 0-100
	Weight float64 `json:"weight"` // configured weight
}

// RiskResult is the composite risk score with its factor breakdown.
type RiskResult struct {
	Score         float64      `json:"score"` // 0-100
	Level         string       `json:"level"`
	Factors       []RiskFactor `json:"factors"`
	LowConfidence bool         `json:"low_confidence"`
}
