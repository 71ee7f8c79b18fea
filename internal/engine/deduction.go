package engine

import (
	"sort"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/models"
)

// Deduct withdraws an expense across buckets in cascade order and returns
// the planned per-bucket deductions. It never mutates its inputs; the caller
// applies the result atomically.
//
// Cascade order: the primary bucket first when given, then the configured
// non-reserved order, then any remaining non-reserved buckets by ascending
// priority, and reserved buckets last. When the whole ledger cannot cover
// the expense and force is false, nothing is deducted and an
// InsufficientFundsError reports the shortfall; with force true the partial
// deductions commit and the uncovered remainder is recorded as debt on the
// expense, never as a negative balance.
func Deduct(cfg config.EngineConfig, amount int64, buckets []*models.Bucket, primary string, force bool) (*models.DeductionResult, error) {
	if amount <= 0 {
		return nil, validationf("expense amount must be positive, got %d", amount)
	}
	if len(buckets) == 0 {
		return nil, validationf("no buckets configured")
	}
	if primary != "" && findBucket(buckets, primary) == nil {
		return nil, validationf("unknown bucket %q", primary)
	}

	var totalAvailable int64
	for _, b := range buckets {
		totalAvailable += b.CurrentBalance
	}
	if amount > totalAvailable && !force {
		return nil, &InsufficientFundsError{
			Requested:      amount,
			TotalAvailable: totalAvailable,
			Shortfall:      amount - totalAvailable,
		}
	}

	result := &models.DeductionResult{}
	remaining := amount
	for _, b := range cascadeOrder(cfg, buckets, primary) {
		if remaining == 0 {
			break
		}
		if b.CurrentBalance <= 0 {
			continue
		}
		take := min64(remaining, b.CurrentBalance)
		result.Deductions = append(result.Deductions, models.BucketDeduction{
			BucketName: b.Name,
			Amount:     take,
			NewBalance: b.CurrentBalance - take,
		})
		if b.IsReserved {
			result.TouchedReserved = true
		}
		remaining -= take
	}
	result.Uncovered = remaining
	return result, nil
}

// cascadeOrder builds the fixed draw order for one deduction.
func cascadeOrder(cfg config.EngineConfig, buckets []*models.Bucket, primary string) []*models.Bucket {
	byName := make(map[string]*models.Bucket, len(buckets))
	for _, b := range buckets {
		byName[b.Name] = b
	}

	seen := make(map[string]bool, len(buckets))
	ordered := make([]*models.Bucket, 0, len(buckets))
	add := func(b *models.Bucket) {
		if b != nil && !seen[b.Name] {
			seen[b.Name] = true
			ordered = append(ordered, b)
		}
	}

	if primary != "" {
		add(byName[primary])
	}
	for _, name := range cfg.CascadeOrder {
		if b := byName[name]; b != nil && !b.IsReserved {
			add(b)
		}
	}

	rest := make([]*models.Bucket, 0, len(buckets))
	for _, b := range buckets {
		if !seen[b.Name] {
			rest = append(rest, b)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		// Non-reserved before reserved, then ascending priority.
		if rest[i].IsReserved != rest[j].IsReserved {
			return !rest[i].IsReserved
		}
		return rest[i].Priority < rest[j].Priority
	})
	for _, b := range rest {
		add(b)
	}
	return ordered
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
