package engine

import (
	"math"
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/models"
)

// DeriveStatus computes the effective status of an advance at a point in
// time. An approved advance past its due date reads as overdue; the stored
// status stays "approved" until repayment (lazy transition, no background
// job).
func DeriveStatus(a *models.Advance, now time.Time) string {
	if a.Status == models.AdvanceApproved && now.After(a.DueDate) {
		return models.AdvanceOverdue
	}
	return a.Status
}

// Evaluate computes how much advance the guardrails allow right now.
// max = guardrail_percent * trailing_weekly_income - outstanding repayments,
// clamped to the absolute bounds. An overdue advance or a full active slot
// blocks new requests entirely.
func Evaluate(cfg config.EngineConfig, advances []*models.Advance, incomeHistory []*models.IncomeEvent, now time.Time) models.Eligibility {
	elig := models.Eligibility{
		WeeklyIncome: trailingWeeklyIncome(cfg, incomeHistory, now),
	}
	for _, a := range advances {
		switch DeriveStatus(a, now) {
		case models.AdvanceOverdue:
			elig.Outstanding += a.TotalRepayment
			elig.ActiveCount++
			elig.Reason = ReasonOverdueOutstanding
		case models.AdvanceApproved:
			elig.Outstanding += a.TotalRepayment
			elig.ActiveCount++
		}
	}
	if elig.Reason == ReasonOverdueOutstanding {
		return elig
	}
	if elig.ActiveCount >= cfg.MaxActiveAdvances {
		elig.Reason = ReasonTooManyActive
		return elig
	}

	maxByIncome := scaledShare(elig.WeeklyIncome, cfg.GuardrailPercent) - elig.Outstanding
	if maxByIncome > cfg.MaxAdvanceAmount {
		maxByIncome = cfg.MaxAdvanceAmount
	}
	if maxByIncome < cfg.MinAdvanceAmount {
		elig.Reason = ReasonLimitExhausted
		return elig
	}
	elig.MaxAmount = maxByIncome
	elig.CanRequest = true
	return elig
}

// ValidateRequest checks a concrete requested amount against an eligibility
// snapshot taken at the same instant.
func ValidateRequest(cfg config.EngineConfig, amount int64, elig models.Eligibility) error {
	if amount <= 0 {
		return validationf("advance amount must be positive, got %d", amount)
	}
	if !elig.CanRequest {
		return &GuardrailError{Reason: elig.Reason}
	}
	if amount < cfg.MinAdvanceAmount {
		return &GuardrailError{Reason: ReasonBelowMinimum}
	}
	if amount > cfg.MaxAdvanceAmount {
		return &GuardrailError{Reason: ReasonAboveMaximum}
	}
	if amount > elig.MaxAmount {
		return &GuardrailError{Reason: ReasonOverGuardrail}
	}
	return nil
}

// PriceAdvance computes the fee and total repayment for a principal. The fee
// is truncated to whole paise, the same rounding rule allocation uses.
func PriceAdvance(cfg config.EngineConfig, principal int64) (fee, total int64) {
	fee = scaledShare(principal, cfg.FeePercent)
	return fee, principal + fee
}

// trailingWeeklyIncome estimates a week of income from the trailing window,
// scaled to 7 days to smooth gig volatility. Too little history means zero:
// the guardrail must not fabricate creditworthiness.
func trailingWeeklyIncome(cfg config.EngineConfig, history []*models.IncomeEvent, now time.Time) int64 {
	window := cfg.AdvanceIncomeWindowDays
	if window <= 0 {
		window = 7
	}
	cutoff := now.AddDate(0, 0, -window)
	var total int64
	events := 0
	for _, e := range history {
		if e.EarnedAt.Before(cutoff) || e.EarnedAt.After(now) {
			continue
		}
		total += e.Amount
		events++
	}
	if events < cfg.ForecastMinHistory {
		return 0
	}
	return total * 7 / int64(window)
}

// scaledShare multiplies an amount by a float factor using scaled integer
// math, truncating toward zero.
func scaledShare(amount int64, factor float64) int64 {
	ppm := int64(math.Round(factor * weightScale))
	if ppm <= 0 || amount <= 0 {
		return 0
	}
	return amount * ppm / weightScale
}
