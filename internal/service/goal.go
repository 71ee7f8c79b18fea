package service

import (
	"fmt"
	"time"

	"github.com/Dan9191/gigfin-service/internal/engine"
	"github.com/Dan9191/gigfin-service/internal/models"
	"github.com/google/uuid"
)

// CreateGoal registers a savings goal. Goals track progress alongside the
// ledger; contributions move the goal counter, not bucket balances.
func (s *Service) CreateGoal(g *models.Goal) (*models.Goal, error) {
	if g.Name == "" {
		return nil, &engine.ValidationError{Msg: "goal name is required"}
	}
	if g.TargetAmount <= 0 {
		return nil, &engine.ValidationError{Msg: "goal target amount must be positive"}
	}
	if g.MonthlyContribution < 0 {
		return nil, &engine.ValidationError{Msg: "monthly contribution must not be negative"}
	}
	if g.Priority == 0 {
		g.Priority = 5
	}

	lock := s.ledgerLock(g.UserID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.GetGoals(g.UserID)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.Status == models.GoalActive && e.Name == g.Name {
			return nil, &engine.ValidationError{Msg: fmt.Sprintf("active goal %q already exists", g.Name)}
		}
	}

	g.ID = uuid.NewString()
	g.CurrentAmount = 0
	g.Status = models.GoalActive
	if err := s.repo.CreateGoal(g); err != nil {
		return nil, err
	}
	s.log.Infof("Goal %q created for user %d, target %d", g.Name, g.UserID, g.TargetAmount)
	return g, nil
}

// ListGoals returns the user's goals, highest priority first.
func (s *Service) ListGoals(userID int64) ([]*models.Goal, error) {
	return s.repo.GetGoals(userID)
}

// GetGoal returns one goal together with its progress projection.
func (s *Service) GetGoal(userID int64, goalID string) (*models.Goal, *models.GoalAnalysis, error) {
	goal, err := s.repo.FindGoal(userID, goalID)
	if err != nil {
		return nil, nil, err
	}
	stats, dailySpend, err := s.goalContext(userID)
	if err != nil {
		return nil, nil, err
	}
	analysis := engine.AnalyzeGoal(goal, stats, dailySpend, s.now())
	return goal, &analysis, nil
}

// GoalPatch carries optional goal field updates; nil fields stay unchanged.
type GoalPatch struct {
	Name                *string
	TargetAmount        *int64
	TargetDate          *time.Time
	MonthlyContribution *int64
	Priority            *int
	Status              *string
}

// UpdateGoal applies a partial update to a goal.
func (s *Service) UpdateGoal(userID int64, goalID string, patch GoalPatch) (*models.Goal, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	goal, err := s.repo.FindGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, &engine.ValidationError{Msg: "goal name is required"}
		}
		goal.Name = *patch.Name
	}
	if patch.TargetAmount != nil {
		if *patch.TargetAmount <= 0 {
			return nil, &engine.ValidationError{Msg: "goal target amount must be positive"}
		}
		goal.TargetAmount = *patch.TargetAmount
	}
	if patch.TargetDate != nil {
		goal.TargetDate = patch.TargetDate
	}
	if patch.MonthlyContribution != nil {
		if *patch.MonthlyContribution < 0 {
			return nil, &engine.ValidationError{Msg: "monthly contribution must not be negative"}
		}
		goal.MonthlyContribution = *patch.MonthlyContribution
	}
	if patch.Priority != nil {
		goal.Priority = *patch.Priority
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.GoalActive, models.GoalCompleted:
			goal.Status = *patch.Status
		default:
			return nil, &engine.ValidationError{Msg: fmt.Sprintf("unknown goal status %q", *patch.Status)}
		}
	}
	if err := s.repo.UpdateGoal(goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// ContributeToGoal adds progress to an active goal. Reaching the target caps
// the contribution and completes the goal.
func (s *Service) ContributeToGoal(userID int64, goalID string, amount int64) (*models.Goal, error) {
	if amount <= 0 {
		return nil, &engine.ValidationError{Msg: "contribution amount must be positive"}
	}

	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	goal, err := s.repo.FindGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status != models.GoalActive {
		return nil, &engine.ValidationError{Msg: fmt.Sprintf("goal %q is not active", goal.Name)}
	}

	goal.Contribute(amount)
	if err := s.repo.UpdateGoal(goal); err != nil {
		return nil, err
	}
	if goal.Status == models.GoalCompleted {
		s.log.Infof("Goal %q completed for user %d", goal.Name, userID)
	}
	return goal, nil
}

// DeleteGoal removes a goal on user request.
func (s *Service) DeleteGoal(userID int64, goalID string) error {
	return s.repo.DeleteGoal(userID, goalID)
}

// SimulateGoal runs what-if savings scenarios against a goal.
func (s *Service) SimulateGoal(userID int64, goalID string, scenarios []models.GoalScenario) ([]models.GoalScenarioResult, error) {
	goal, err := s.repo.FindGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	stats, dailySpend, err := s.goalContext(userID)
	if err != nil {
		return nil, err
	}
	return engine.SimulateGoal(goal, scenarios, stats, dailySpend, s.now())
}

// goalContext reads the income/expense history that goal projections rest on.
func (s *Service) goalContext(userID int64) (models.IncomeStats, int64, error) {
	lock := s.ledgerLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	income, err := s.repo.GetIncomeSince(userID, now.AddDate(0, 0, -s.config.Engine.IncomeWindowDays))
	if err != nil {
		return models.IncomeStats{}, 0, err
	}
	expenses, err := s.repo.GetExpensesSince(userID, now.AddDate(0, 0, -s.config.Engine.ExpenseWindowDays))
	if err != nil {
		return models.IncomeStats{}, 0, err
	}
	stats := engine.IncomeStatsFromHistory(s.config.Engine, income, now)
	return stats, engine.TrailingDailySpend(s.config.Engine, expenses, now), nil
}
