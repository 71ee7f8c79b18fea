package engine

import (
	"time"

	"github.com/Dan9191/gigfin-service/internal/models"
)

// AnalyzeGoal projects a savings goal forward. The projection rate is the
// goal's own monthly contribution when set, otherwise the trailing daily
// surplus (average income minus average spend). A zero rate yields no
// projection, never an error.
func AnalyzeGoal(goal *models.Goal, stats models.IncomeStats, dailySpend int64, now time.Time) models.GoalAnalysis {
	analysis := models.GoalAnalysis{
		GoalID:           goal.ID,
		Remaining:        goal.Remaining(),
		DailySavingsRate: goalSavingsRate(goal, stats, dailySpend),
	}
	if goal.TargetAmount > 0 {
		analysis.ProgressPercent = 100 * float64(goal.CurrentAmount) / float64(goal.TargetAmount)
	}
	if analysis.Remaining == 0 {
		analysis.OnTrack = true
		return analysis
	}

	if analysis.DailySavingsRate > 0 {
		days := int(ceilDiv(analysis.Remaining, analysis.DailySavingsRate))
		analysis.DaysToComplete = days
		analysis.ProjectedCompletion = now.AddDate(0, 0, days).Format("2006-01-02")
	}
	if goal.TargetDate == nil {
		analysis.OnTrack = analysis.DailySavingsRate > 0
		return analysis
	}

	left := daysUntil(now, *goal.TargetDate)
	if left < 0 {
		left = 0
	}
	analysis.DaysRemaining = left
	if left > 0 {
		analysis.DailyNeeded = ceilDiv(analysis.Remaining, int64(left))
	}
	analysis.OnTrack = analysis.DaysToComplete > 0 && analysis.DaysToComplete <= left
	return analysis
}

// SimulateGoal compares what-if savings plans against the goal's baseline
// projection.
func SimulateGoal(goal *models.Goal, scenarios []models.GoalScenario, stats models.IncomeStats, dailySpend int64, now time.Time) ([]models.GoalScenarioResult, error) {
	if len(scenarios) == 0 {
		return nil, validationf("no scenarios given")
	}
	baseline := AnalyzeGoal(goal, stats, dailySpend, now)
	remaining := goal.Remaining()

	results := make([]models.GoalScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		if sc.DailySavings <= 0 {
			return nil, validationf("scenario %q: daily savings must be positive", sc.Name)
		}
		days := int(ceilDiv(remaining, sc.DailySavings))
		result := models.GoalScenarioResult{
			Name:                sc.Name,
			DailySavings:        sc.DailySavings,
			DaysToComplete:      days,
			ProjectedCompletion: now.AddDate(0, 0, days).Format("2006-01-02"),
		}
		if baseline.DaysToComplete > 0 {
			result.DaysSaved = baseline.DaysToComplete - days
		}
		results = append(results, result)
	}
	return results, nil
}

// goalSavingsRate is the paise-per-day rate used for goal projections.
func goalSavingsRate(goal *models.Goal, stats models.IncomeStats, dailySpend int64) int64 {
	if goal.MonthlyContribution > 0 {
		return goal.MonthlyContribution / 30
	}
	if surplus := stats.DailyAverage - dailySpend; surplus > 0 {
		return surplus
	}
	return 0
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
