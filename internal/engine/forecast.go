package engine

import (
	"math"
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/models"
)

// IncomeStatsFromHistory computes trailing-window income averages and
// volatility. With fewer than cfg.ForecastMinHistory events in the window it
// returns zero estimates; callers surface that as low confidence instead of
// failing.
func IncomeStatsFromHistory(cfg config.EngineConfig, history []*models.IncomeEvent, now time.Time) models.IncomeStats {
	cutoff := now.AddDate(0, 0, -cfg.IncomeWindowDays)

	dailyTotals := make(map[string]int64)
	var weekdayTotal, weekendTotal int64
	weekdayDays := make(map[string]bool)
	weekendDays := make(map[string]bool)
	events := 0
	for _, e := range history {
		if e.EarnedAt.Before(cutoff) || e.EarnedAt.After(now) {
			continue
		}
		events++
		day := e.EarnedAt.Format("2006-01-02")
		dailyTotals[day] += e.Amount
		if isWeekend(e.EarnedAt) {
			weekendTotal += e.Amount
			weekendDays[day] = true
		} else {
			weekdayTotal += e.Amount
			weekdayDays[day] = true
		}
	}

	if events < cfg.ForecastMinHistory || len(dailyTotals) == 0 {
		return models.IncomeStats{SampleDays: len(dailyTotals)}
	}

	var total int64
	for _, v := range dailyTotals {
		total += v
	}
	sampleDays := len(dailyTotals)
	stats := models.IncomeStats{
		DailyAverage: total / int64(sampleDays),
		SampleDays:   sampleDays,
	}
	stats.WeeklyAverage = stats.DailyAverage * 7
	stats.WeekdayAverage = stats.DailyAverage
	stats.WeekendAverage = stats.DailyAverage
	if n := len(weekdayDays); n > 0 {
		stats.WeekdayAverage = weekdayTotal / int64(n)
	}
	if n := len(weekendDays); n > 0 {
		stats.WeekendAverage = weekendTotal / int64(n)
	}

	// Coefficient of variation over daily totals.
	mean := float64(total) / float64(sampleDays)
	if mean > 0 && sampleDays > 1 {
		var sq float64
		for _, v := range dailyTotals {
			d := float64(v) - mean
			sq += d * d
		}
		stats.Volatility = math.Sqrt(sq/float64(sampleDays)) / mean
	}
	return stats
}

// Forecast walks forward day by day from the current total balance, adding
// expected income and subtracting obligations due and the trailing average
// discretionary spend. Obligations recur inside the horizon per their
// recurrence rule.
func Forecast(cfg config.EngineConfig, horizonDays int, buckets []*models.Bucket, obligations []*models.Obligation,
	incomeHistory []*models.IncomeEvent, expenseHistory []*models.ExpenseEvent, now time.Time) (*models.ForecastResult, error) {
	if horizonDays <= 0 {
		horizonDays = cfg.DefaultHorizonDays
	}
	if horizonDays > 366 {
		return nil, validationf("forecast horizon too long: %d days", horizonDays)
	}

	stats := IncomeStatsFromHistory(cfg, incomeHistory, now)
	lowConfidence := stats.Sparse(cfg.ForecastMinHistory)
	dailySpend := TrailingDailySpend(cfg, expenseHistory, now)
	dueByDay := expandObligations(obligations, now, horizonDays)

	var balance int64
	for _, b := range buckets {
		balance += b.CurrentBalance
	}

	result := &models.ForecastResult{
		HorizonDays:   horizonDays,
		Stats:         stats,
		LowConfidence: lowConfidence,
	}
	for offset := 0; offset < horizonDays; offset++ {
		date := now.AddDate(0, 0, offset)
		key := date.Format("2006-01-02")

		income := stats.DailyAverage
		if cfg.WeekendWeighting {
			if isWeekend(date) {
				income = stats.WeekendAverage
			} else {
				income = stats.WeekdayAverage
			}
		}

		var obligationAmount int64
		var names []string
		for _, due := range dueByDay[key] {
			obligationAmount += due.Amount
			names = append(names, due.Name)
		}

		balance += income - dailySpend - obligationAmount
		day := models.DailyProjection{
			Date:             key,
			ProjectedBalance: balance,
			IncomeExpected:   income,
			ExpenseExpected:  dailySpend,
			ObligationsDue:   names,
			ObligationAmount: obligationAmount,
			Status:           classifyDay(cfg, balance),
		}
		result.Daily = append(result.Daily, day)
	}

	risk := Score(cfg, result.Daily, buckets, obligations, stats, now)
	result.RiskScore = risk.Score
	result.RiskLevel = risk.Level
	return result, nil
}

func classifyDay(cfg config.EngineConfig, balance int64) string {
	switch {
	case balance < 0:
		return models.DayShortfall
	case balance < cfg.TightBuffer:
		return models.DayTight
	default:
		return models.DaySafe
	}
}

// TrailingDailySpend averages recorded expenses over the expense window.
// With no history it is zero; the forecast's low-confidence flag covers the
// sparse-data case.
func TrailingDailySpend(cfg config.EngineConfig, history []*models.ExpenseEvent, now time.Time) int64 {
	if cfg.ExpenseWindowDays <= 0 {
		return 0
	}
	cutoff := now.AddDate(0, 0, -cfg.ExpenseWindowDays)
	var total int64
	for _, e := range history {
		if e.SpentAt.Before(cutoff) || e.SpentAt.After(now) {
			continue
		}
		total += e.Amount
	}
	return total / int64(cfg.ExpenseWindowDays)
}

type dueEntry struct {
	Name   string
	Amount int64
}

// expandObligations maps each day inside the horizon to the obligations due
// on it, repeating recurring obligations as many times as they fall inside
// the horizon. An unpaid obligation already past its due date folds into day
// zero: the bill is still owed and must not vanish from the projection.
func expandObligations(obligations []*models.Obligation, now time.Time, horizonDays int) map[string][]dueEntry {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, horizonDays)

	out := make(map[string][]dueEntry)
	for _, o := range obligations {
		if !o.IsActive {
			continue
		}
		due := o.DueDate
		for i := 0; i < horizonDays+1; i++ {
			if !due.Before(end) {
				break
			}
			day := due
			if day.Before(start) {
				day = start
			}
			key := day.Format("2006-01-02")
			out[key] = append(out[key], dueEntry{Name: o.Name, Amount: o.Amount})
			if o.Recurrence == models.RecurrenceOneTime {
				break
			}
			next := (&models.Obligation{DueDate: due, Recurrence: o.Recurrence}).NextDueDate()
			if !next.After(due) {
				break
			}
			due = next
		}
	}
	return out
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
