package models

import "time"

// Goal statuses.
const (
	GoalActive    = "active"
	GoalCompleted = "completed"
)

// Goal is a savings target tracked alongside the ledger. Contributions move
// the goal's progress counter, not bucket balances. Amounts are in paise.
type Goal struct {
	ID                  string     `json:"id"`
	UserID              int64      `json:"user_id"`
	Name                string     `json:"name"`
	TargetAmount        int64      `json:"target_amount"`
	CurrentAmount       int64      `json:"current_amount"`
	TargetDate          *time.Time `json:"target_date,omitempty"`
	MonthlyContribution int64      `json:"monthly_contribution"`
	Priority            int        `json:"priority"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Remaining returns how much is still to save, never negative.
func (g *Goal) Remaining() int64 {
	if r := g.TargetAmount - g.CurrentAmount; r > 0 {
		return r
	}
	return 0
}

// Contribute adds to the goal's progress. Reaching the target caps the amount
// and completes the goal.
func (g *Goal) Contribute(amount int64) {
	g.CurrentAmount += amount
	if g.CurrentAmount >= g.TargetAmount {
		g.CurrentAmount = g.TargetAmount
		g.Status = GoalCompleted
	}
}

// GoalAnalysis is a goal's progress and completion projection.
type GoalAnalysis struct {
	GoalID              string  `json:"goal_id"`
	ProgressPercent     float64 `json:"progress_percent"`
	Remaining           int64   `json:"remaining_amount"`
	DailySavingsRate    int64   `json:"daily_savings_rate"` // paise/day used for projection
	DaysToComplete      int     `json:"days_to_complete,omitempty"`
	ProjectedCompletion string  `json:"projected_completion,omitempty"` // YYYY-MM-DD
	DaysRemaining       int     `json:"days_remaining,omitempty"`       // until the target date
	DailyNeeded         int64   `json:"daily_savings_needed,omitempty"` // to hit the target date
	OnTrack             bool    `json:"on_track"`
}

// GoalScenario is one what-if savings plan to simulate against a goal.
type GoalScenario struct {
	Name         string `json:"name"`
	DailySavings int64  `json:"daily_savings"` // paise
}

// GoalScenarioResult compares one scenario against the goal's baseline.
type GoalScenarioResult struct {
	Name                string `json:"name"`
	DailySavings        int64  `json:"daily_savings"`
	DaysToComplete      int    `json:"days_to_complete"`
	ProjectedCompletion string `json:"projected_completion"` // YYYY-MM-DD
	DaysSaved           int    `json:"days_saved"`           // vs baseline; 0 when no baseline
}
