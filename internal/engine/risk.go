package engine

import (
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/models"
)

// Risk levels, monotonic bands over the 0-100 score.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Score combines four factors into a 0-100 risk score: proximity and funding
// of upcoming obligations, forecast shortfall days, income volatility, and
// buckets below target. The weights come from configuration.
func Score(cfg config.EngineConfig, daily []models.DailyProjection, buckets []*models.Bucket,
	obligations []*models.Obligation, stats models.IncomeStats, now time.Time) models.RiskResult {
	factors := []models.RiskFactor{
		{Name: "obligation_pressure", Value: obligationPressure(buckets, obligations, now), Weight: cfg.WeightObligations},
		{Name: "forecast_shortfalls", Value: shortfallPressure(daily), Weight: cfg.WeightShortfalls},
		{Name: "income_volatility", Value: clamp(stats.Volatility*100, 0, 100), Weight: cfg.WeightVolatility},
		{Name: "buckets_below_target", Value: belowTargetPressure(buckets), Weight: cfg.WeightBelowTarget},
	}

	var weighted, totalWeight float64
	for _, f := range factors {
		weighted += f.Value * f.Weight
		totalWeight += f.Weight
	}
	score := 0.0
	if totalWeight > 0 {
		score = clamp(weighted/totalWeight, 0, 100)
	}
	return models.RiskResult{
		Score:         score,
		Level:         Band(cfg, score),
		Factors:       factors,
		LowConfidence: stats.Sparse(cfg.ForecastMinHistory),
	}
}

// Band maps a score to its risk level. Bands are half-open, disjoint and
// cover [0,100]: low < moderate bound, moderate < high bound, high <
// critical bound, critical above.
func Band(cfg config.EngineConfig, score float64) string {
	switch {
	case score < cfg.RiskBandModerate:
		return RiskLow
	case score < cfg.RiskBandHigh:
		return RiskModerate
	case score < cfg.RiskBandCritical:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// obligationPressure scores the worst upcoming obligation by how underfunded
// its linked bucket is, sharpened by proximity.
func obligationPressure(buckets []*models.Bucket, obligations []*models.Obligation, now time.Time) float64 {
	worst := 0.0
	for _, o := range obligations {
		if !o.IsActive || o.Amount <= 0 {
			continue
		}
		until := daysUntil(now, o.DueDate)
		if until > 30 {
			continue
		}
		if until < 0 {
			// Past due and unpaid: maximum urgency.
			until = 0
		}
		var balance int64
		if b := findBucket(buckets, o.LinkedBucket); b != nil {
			balance = b.CurrentBalance
		}
		coverage := float64(balance) / float64(o.Amount)
		var base float64
		switch {
		case coverage >= 1.0:
			base = 0
		case coverage >= 0.8:
			base = 30
		case coverage >= 0.5:
			base = 60
		default:
			base = 90
		}
		urgency := 1.0
		if until <= 3 {
			urgency = 1.3
		} else if until <= 7 {
			urgency = 1.1
		}
		if s := clamp(base*urgency, 0, 100); s > worst {
			worst = s
		}
	}
	return worst
}

// shortfallPressure scales with forecast shortfall days. One projected
// negative day is already serious for a cash-based worker, so each day adds
// a fixed step instead of diluting across the horizon.
func shortfallPressure(daily []models.DailyProjection) float64 {
	count := 0
	for _, d := range daily {
		if d.Status == models.DayShortfall {
			count++
		}
	}
	return clamp(float64(count)*20, 0, 100)
}

func belowTargetPressure(buckets []*models.Bucket) float64 {
	withTarget, below := 0, 0
	for _, b := range buckets {
		if !b.HasTarget() {
			continue
		}
		withTarget++
		if b.CurrentBalance < b.TargetAmount {
			below++
		}
	}
	if withTarget == 0 {
		return 0
	}
	return 100 * float64(below) / float64(withTarget)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
