package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/gigfin-service/internal/models"
)

func TestIncomeStatsLowHistory(t *testing.T) {
	cfg := testEngineConfig()
	history := []*models.IncomeEvent{
		{Amount: 100000, EarnedAt: testNow.AddDate(0, 0, -1)},
	}
	stats := IncomeStatsFromHistory(cfg, history, testNow)
	if stats.DailyAverage != 0 || stats.WeeklyAverage != 0 {
		t.Errorf("stats = %+v, want zero estimates below min history", stats)
	}
}

func TestIncomeStatsWeekendSplit(t *testing.T) {
	cfg := testEngineConfig()
	// 2024-05-11 Sat, 05-12 Sun, 05-13 Mon, 05-14 Tue.
	history := []*models.IncomeEvent{
		{Amount: 200000, EarnedAt: time.Date(2024, 5, 11, 18, 0, 0, 0, time.UTC)},
		{Amount: 200000, EarnedAt: time.Date(2024, 5, 12, 18, 0, 0, 0, time.UTC)},
		{Amount: 100000, EarnedAt: time.Date(2024, 5, 13, 18, 0, 0, 0, time.UTC)},
		{Amount: 100000, EarnedAt: time.Date(2024, 5, 14, 18, 0, 0, 0, time.UTC)},
	}
	stats := IncomeStatsFromHistory(cfg, history, testNow)
	if stats.DailyAverage != 150000 {
		t.Errorf("DailyAverage = %d, want 150000", stats.DailyAverage)
	}
	if stats.WeekdayAverage != 100000 {
		t.Errorf("WeekdayAverage = %d, want 100000", stats.WeekdayAverage)
	}
	if stats.WeekendAverage != 200000 {
		t.Errorf("WeekendAverage = %d, want 200000", stats.WeekendAverage)
	}
	if stats.SampleDays != 4 {
		t.Errorf("SampleDays = %d, want 4", stats.SampleDays)
	}
	if stats.Volatility <= 0 {
		t.Errorf("Volatility = %v, want > 0 for uneven days", stats.Volatility)
	}
}

func TestIncomeStatsEmptyHistory(t *testing.T) {
	for _, minHistory := range []int{0, 1, 2} {
		cfg := testEngineConfig()
		cfg.ForecastMinHistory = minHistory
		stats := IncomeStatsFromHistory(cfg, nil, testNow)
		if stats.DailyAverage != 0 || stats.Volatility != 0 || stats.SampleDays != 0 {
			t.Errorf("min history %d: stats = %+v, want zero estimates", minHistory, stats)
		}
	}
}

func TestLowConfidenceConsistent(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{{Name: "discretionary", CurrentBalance: 100000}}

	tests := []struct {
		name    string
		history []*models.IncomeEvent
		want    bool
	}{
		{
			name: "many events on one day",
			history: []*models.IncomeEvent{
				{Amount: 50000, EarnedAt: testNow.AddDate(0, 0, -1)},
				{Amount: 50000, EarnedAt: testNow.AddDate(0, 0, -1)},
				{Amount: 50000, EarnedAt: testNow.AddDate(0, 0, -1)},
			},
			want: true,
		},
		{
			name: "two sampled days",
			history: []*models.IncomeEvent{
				{Amount: 50000, EarnedAt: testNow.AddDate(0, 0, -1)},
				{Amount: 50000, EarnedAt: testNow.AddDate(0, 0, -2)},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forecast, err := Forecast(cfg, 7, buckets, nil, tt.history, nil, testNow)
			if err != nil {
				t.Fatalf("Forecast() error = %v", err)
			}
			risk := Score(cfg, forecast.Daily, buckets, nil, forecast.Stats, testNow)
			if forecast.LowConfidence != tt.want {
				t.Errorf("forecast LowConfidence = %v, want %v", forecast.LowConfidence, tt.want)
			}
			if risk.LowConfidence != forecast.LowConfidence {
				t.Errorf("risk LowConfidence = %v, forecast = %v; want identical",
					risk.LowConfidence, forecast.LowConfidence)
			}
		})
	}
}

func TestForecastOverdueObligationFoldsToToday(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{{Name: "discretionary", CurrentBalance: 100000}}
	obligations := []*models.Obligation{
		{Name: "Room Rent", Amount: 60000, DueDate: testNow.AddDate(0, 0, -3), Recurrence: models.RecurrenceOneTime, IsActive: true},
	}

	result, err := Forecast(cfg, 7, buckets, obligations, nil, nil, testNow)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	today := result.Daily[0]
	if today.ObligationAmount != 60000 {
		t.Errorf("day 0 obligation amount = %d, want the overdue 60000", today.ObligationAmount)
	}
	if today.ProjectedBalance != 40000 {
		t.Errorf("day 0 projected balance = %d, want 40000", today.ProjectedBalance)
	}
}

func TestIncomeStatsIgnoresOutsideWindow(t *testing.T) {
	cfg := testEngineConfig()
	history := []*models.IncomeEvent{
		{Amount: 100000, EarnedAt: testNow.AddDate(0, 0, -1)},
		{Amount: 100000, EarnedAt: testNow.AddDate(0, 0, -2)},
		{Amount: 900000, EarnedAt: testNow.AddDate(0, 0, -60)}, // stale
		{Amount: 900000, EarnedAt: testNow.AddDate(0, 0, 1)},   // future
	}
	stats := IncomeStatsFromHistory(cfg, history, testNow)
	if stats.DailyAverage != 100000 {
		t.Errorf("DailyAverage = %d, want 100000", stats.DailyAverage)
	}
}

func TestForecastDayClassification(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{
		{Name: "discretionary", CurrentBalance: 100000},
	}
	obligations := []*models.Obligation{
		{Name: "Room Rent", Amount: 60000, DueDate: testNow.AddDate(0, 0, 3), Recurrence: models.RecurrenceOneTime, IsActive: true},
		{Name: "Bike EMI", Amount: 50000, DueDate: testNow.AddDate(0, 0, 5), Recurrence: models.RecurrenceOneTime, IsActive: true},
	}

	result, err := Forecast(cfg, 7, buckets, obligations, nil, nil, testNow)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(result.Daily) != 7 {
		t.Fatalf("projection days = %d, want 7", len(result.Daily))
	}
	if !result.LowConfidence {
		t.Errorf("LowConfidence = false, want true with no income history")
	}

	// No income, no spend history: balance only moves on due days.
	wantStatus := []string{
		models.DaySafe,      // 100000
		models.DaySafe,      // 100000
		models.DaySafe,      // 100000
		models.DayTight,     // 40000 after rent
		models.DayTight,     // 40000
		models.DayShortfall, // -10000 after EMI
		models.DayShortfall, // -10000
	}
	for i, day := range result.Daily {
		if day.Status != wantStatus[i] {
			t.Errorf("day %d (%s) status = %s, want %s (balance %d)",
				i, day.Date, day.Status, wantStatus[i], day.ProjectedBalance)
		}
	}
	if result.Daily[3].ObligationAmount != 60000 {
		t.Errorf("day 3 obligation amount = %d, want 60000", result.Daily[3].ObligationAmount)
	}
	if result.RiskLevel == RiskLow {
		t.Errorf("RiskLevel = %s, want elevated with projected shortfalls", result.RiskLevel)
	}
}

func TestForecastRecurringObligations(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{{Name: "discretionary", CurrentBalance: 10000000}}
	obligations := []*models.Obligation{
		{Name: "Chit Fund", Amount: 20000, DueDate: testNow.AddDate(0, 0, 2), Recurrence: models.RecurrenceWeekly, IsActive: true},
	}

	result, err := Forecast(cfg, 30, buckets, obligations, nil, nil, testNow)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	var total int64
	for _, day := range result.Daily {
		total += day.ObligationAmount
	}
	// Due on days 2, 9, 16, 23 inside a 30-day horizon.
	if total != 4*20000 {
		t.Errorf("recurring obligation total = %d, want %d", total, 4*20000)
	}
}

func TestForecastHorizonBounds(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{{Name: "discretionary", CurrentBalance: 100000}}

	result, err := Forecast(cfg, 0, buckets, nil, nil, nil, testNow)
	if err != nil {
		t.Fatalf("Forecast(0) error = %v", err)
	}
	if len(result.Daily) != cfg.DefaultHorizonDays {
		t.Errorf("default horizon = %d days, want %d", len(result.Daily), cfg.DefaultHorizonDays)
	}

	_, err = Forecast(cfg, 400, buckets, nil, nil, nil, testNow)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("Forecast(400) error = %v, want ValidationError", err)
	}
}

func TestTrailingDailySpend(t *testing.T) {
	cfg := testEngineConfig()
	history := []*models.ExpenseEvent{
		{Amount: 70000, SpentAt: testNow.AddDate(0, 0, -1)},
		{Amount: 70000, SpentAt: testNow.AddDate(0, 0, -3)},
		{Amount: 999999, SpentAt: testNow.AddDate(0, 0, -40)}, // stale
	}
	// 140000 over a 14-day window.
	if got := TrailingDailySpend(cfg, history, testNow); got != 10000 {
		t.Errorf("TrailingDailySpend() = %d, want 10000", got)
	}
}
