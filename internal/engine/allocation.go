package engine

import (
	"math"
	"sort"
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/models"
)

// weightScale converts float percents into integer weights so that share
// division is exact and deterministic.
const weightScale = 1_000_000

// Allocate distributes an income amount across buckets and returns the
// per-bucket credits. It never mutates its inputs; the caller applies the
// deltas atomically.
//
// Effective percents start from each bucket's base percent, then two
// multipliers apply in order: a risk boost for buckets funding an obligation
// due inside the risk window while underfunded, and a target taper for
// buckets that already reached their target. Boost mass is taken
// proportionally from non-reserved, non-boosted buckets; tapered mass is
// redirected to the discretionary bucket. Shares are truncated to whole
// paise and the rounding remainder is credited to the discretionary bucket,
// so the deltas always sum to the incoming amount exactly.
func Allocate(cfg config.EngineConfig, amount int64, buckets []*models.Bucket, obligations []*models.Obligation, now time.Time) (*models.AllocationResult, error) {
	if amount < 0 {
		return nil, validationf("income amount must not be negative, got %d", amount)
	}
	if amount == 0 {
		return &models.AllocationResult{}, nil
	}
	if len(buckets) == 0 {
		return nil, validationf("no buckets configured")
	}

	discretionary := findBucket(buckets, cfg.DiscretionaryBucket)
	if discretionary == nil {
		return nil, validationf("discretionary bucket %q not found", cfg.DiscretionaryBucket)
	}

	ordered := make([]*models.Bucket, len(buckets))
	copy(ordered, buckets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	type share struct {
		bucket  *models.Bucket
		percent float64
		boosted bool
		tapered bool
	}
	shares := make([]*share, len(ordered))

	// Pass 1: base percents and boost eligibility.
	var boostMass, donorMass float64
	for i, b := range ordered {
		s := &share{bucket: b, percent: b.BasePercent}
		if bucketNeedsBoost(b, obligations, cfg.RiskWindowDays, now) {
			s.boosted = true
			boost := b.BasePercent * cfg.BoostFactor
			s.percent += boost
			boostMass += boost
		}
		shares[i] = s
	}
	for _, s := range shares {
		if !s.boosted && !s.bucket.IsReserved {
			donorMass += s.bucket.BasePercent
		}
	}

	// Pass 2: fund the boost proportionally from non-reserved, non-boosted
	// buckets. If the donors cannot cover it, normalization below absorbs
	// the difference.
	if boostMass > 0 && donorMass > 0 {
		for _, s := range shares {
			if s.boosted || s.bucket.IsReserved {
				continue
			}
			s.percent -= boostMass * s.bucket.BasePercent / donorMass
			if s.percent < 0 {
				s.percent = 0
			}
		}
	}

	// Pass 3: target taper. Boost outranks taper: a bucket funding a
	// near-due obligation is never tapered even when over target.
	for _, s := range shares {
		if s.boosted || !s.bucket.HasTarget() {
			continue
		}
		if s.bucket.CurrentBalance >= s.bucket.TargetAmount {
			reduction := s.percent * cfg.TaperFactor
			s.percent -= reduction
			s.tapered = true
			for _, d := range shares {
				if d.bucket == discretionary {
					d.percent += reduction
					break
				}
			}
		}
	}

	// Integer weights and truncated shares. Whatever truncation leaves over
	// goes to the discretionary bucket.
	var totalWeight int64
	weights := make([]int64, len(shares))
	for i, s := range shares {
		w := int64(math.Round(s.percent * weightScale))
		if w < 0 {
			w = 0
		}
		weights[i] = w
		totalWeight += w
	}

	result := &models.AllocationResult{}
	amounts := make([]int64, len(shares))
	var distributed int64
	if totalWeight > 0 {
		for i := range shares {
			amounts[i] = amount * weights[i] / totalWeight
			distributed += amounts[i]
		}
	}
	result.Remainder = amount - distributed
	for i, s := range shares {
		credit := amounts[i]
		if s.bucket == discretionary {
			credit += result.Remainder
		}
		if credit == 0 {
			continue
		}
		result.Deltas = append(result.Deltas, models.BucketDelta{
			BucketName: s.bucket.Name,
			Amount:     credit,
			Percent:    s.percent,
			Boosted:    s.boosted,
			Tapered:    s.tapered,
		})
	}
	return result, nil
}

// bucketNeedsBoost reports whether the bucket funds an obligation due inside
// the risk window while holding less than the obligation amount.
func bucketNeedsBoost(b *models.Bucket, obligations []*models.Obligation, windowDays int, now time.Time) bool {
	for _, o := range obligations {
		if !o.IsActive || o.LinkedBucket != b.Name {
			continue
		}
		until := daysUntil(now, o.DueDate)
		if until >= 0 && until <= windowDays && b.CurrentBalance < o.Amount {
			return true
		}
	}
	return false
}

func findBucket(buckets []*models.Bucket, name string) *models.Bucket {
	for _, b := range buckets {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// daysUntil counts whole calendar days from now to the target date.
func daysUntil(now, target time.Time) int {
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
