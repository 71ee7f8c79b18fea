package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/models"
)

// testEngineConfig mirrors the documented defaults.
func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		DiscretionaryBucket:     "discretionary",
		RiskWindowDays:          3,
		BoostFactor:             0.30,
		TaperFactor:             0.30,
		CascadeOrder:            []string{"discretionary", "flex", "fuel", "savings", "emergency"},
		IncomeWindowDays:        14,
		ExpenseWindowDays:       14,
		TightBuffer:             50000,
		WeekendWeighting:        true,
		WeightObligations:       0.35,
		WeightShortfalls:        0.30,
		WeightVolatility:        0.20,
		WeightBelowTarget:       0.15,
		RiskBandModerate:        40,
		RiskBandHigh:            65,
		RiskBandCritical:        85,
		DefaultHorizonDays:      30,
		ForecastMinHistory:      2,
		GuardrailPercent:        0.40,
		MaxActiveAdvances:       1,
		MinAdvanceAmount:        10000,
		MaxAdvanceAmount:        500000,
		FeePercent:              0,
		AdvanceDueInDays:        7,
		AdvanceIncomeWindowDays: 28,
	}
}

var testNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // a Wednesday

func deltaFor(t *testing.T, result *models.AllocationResult, bucket string) models.BucketDelta {
	t.Helper()
	for _, d := range result.Deltas {
		if d.BucketName == bucket {
			return d
		}
	}
	t.Fatalf("no delta for bucket %q in %+v", bucket, result.Deltas)
	return models.BucketDelta{}
}

func TestAllocateRiskBoost(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{
		{Name: "rent", Priority: 1, BasePercent: 50, IsReserved: true, CurrentBalance: 0},
		{Name: "discretionary", Priority: 2, BasePercent: 50},
	}
	obligations := []*models.Obligation{
		{Name: "Room Rent", Amount: 800000, DueDate: testNow.AddDate(0, 0, 2), LinkedBucket: "rent", IsActive: true, Recurrence: models.RecurrenceMonthly},
	}

	result, err := Allocate(cfg, 100000, buckets, obligations, testNow)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	rent := deltaFor(t, result, "rent")
	disc := deltaFor(t, result, "discretionary")
	if rent.Amount != 65000 {
		t.Errorf("rent delta = %d, want 65000", rent.Amount)
	}
	if !rent.Boosted {
		t.Errorf("rent delta not flagged as boosted")
	}
	if disc.Amount != 35000 {
		t.Errorf("discretionary delta = %d, want 35000", disc.Amount)
	}
	if got := result.Total(); got != 100000 {
		t.Errorf("total allocated = %d, want 100000", got)
	}
}

func TestAllocateNoBoostWhenFunded(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{
		{Name: "rent", Priority: 1, BasePercent: 50, IsReserved: true, CurrentBalance: 900000},
		{Name: "discretionary", Priority: 2, BasePercent: 50},
	}
	obligations := []*models.Obligation{
		{Name: "Room Rent", Amount: 800000, DueDate: testNow.AddDate(0, 0, 2), LinkedBucket: "rent", IsActive: true, Recurrence: models.RecurrenceMonthly},
	}

	result, err := Allocate(cfg, 100000, buckets, obligations, testNow)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if rent := deltaFor(t, result, "rent"); rent.Boosted || rent.Amount != 50000 {
		t.Errorf("rent delta = %+v, want unboosted 50000", rent)
	}
}

func TestAllocateTargetTaper(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{
		{Name: "emergency", Priority: 1, BasePercent: 40, TargetAmount: 100000, CurrentBalance: 100000},
		{Name: "discretionary", Priority: 2, BasePercent: 60},
	}

	result, err := Allocate(cfg, 100000, buckets, nil, testNow)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	// emergency: 40 - 30% = 28, discretionary: 60 + 12 = 72.
	em := deltaFor(t, result, "emergency")
	if !em.Tapered {
		t.Errorf("emergency delta not flagged as tapered")
	}
	if em.Amount != 28000 {
		t.Errorf("emergency delta = %d, want 28000", em.Amount)
	}
	if disc := deltaFor(t, result, "discretionary"); disc.Amount != 72000 {
		t.Errorf("discretionary delta = %d, want 72000", disc.Amount)
	}
}

func TestAllocateBoostOutranksTaper(t *testing.T) {
	cfg := testEngineConfig()
	// Bucket both over target and funding a near-due obligation it cannot
	// cover: boost wins, no taper.
	buckets := []*models.Bucket{
		{Name: "rent", Priority: 1, BasePercent: 50, IsReserved: true, TargetAmount: 100000, CurrentBalance: 150000},
		{Name: "discretionary", Priority: 2, BasePercent: 50},
	}
	obligations := []*models.Obligation{
		{Name: "Room Rent", Amount: 800000, DueDate: testNow.AddDate(0, 0, 1), LinkedBucket: "rent", IsActive: true, Recurrence: models.RecurrenceMonthly},
	}

	result, err := Allocate(cfg, 100000, buckets, obligations, testNow)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	rent := deltaFor(t, result, "rent")
	if !rent.Boosted || rent.Tapered {
		t.Errorf("rent delta = %+v, want boosted and not tapered", rent)
	}
	if rent.Amount != 65000 {
		t.Errorf("rent delta = %d, want 65000", rent.Amount)
	}
}

func TestAllocateRoundingConservation(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{
		{Name: "rent", Priority: 1, BasePercent: 33.3, IsReserved: true},
		{Name: "fuel", Priority: 2, BasePercent: 33.3},
		{Name: "discretionary", Priority: 3, BasePercent: 33.4},
	}

	for _, amount := range []int64{1, 7, 99, 99999, 123457, 1000001} {
		result, err := Allocate(cfg, amount, buckets, nil, testNow)
		if err != nil {
			t.Fatalf("Allocate(%d) error = %v", amount, err)
		}
		if got := result.Total(); got != amount {
			t.Errorf("Allocate(%d) distributed %d, want exact", amount, got)
		}
		if result.Remainder < 0 || result.Remainder >= int64(len(buckets)) {
			t.Errorf("Allocate(%d) remainder = %d, want within [0,%d)", amount, result.Remainder, len(buckets))
		}
	}
}

func TestAllocateZeroAmount(t *testing.T) {
	cfg := testEngineConfig()
	buckets := []*models.Bucket{{Name: "discretionary", BasePercent: 100}}

	result, err := Allocate(cfg, 0, buckets, nil, testNow)
	if err != nil {
		t.Fatalf("Allocate(0) error = %v", err)
	}
	if len(result.Deltas) != 0 || result.Remainder != 0 {
		t.Errorf("Allocate(0) = %+v, want empty result", result)
	}
}

func TestAllocateValidation(t *testing.T) {
	cfg := testEngineConfig()
	tests := []struct {
		name    string
		amount  int64
		buckets []*models.Bucket
	}{
		{"negative amount", -1, []*models.Bucket{{Name: "discretionary", BasePercent: 100}}},
		{"no buckets", 100, nil},
		{"missing discretionary", 100, []*models.Bucket{{Name: "rent", BasePercent: 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(cfg, tt.amount, tt.buckets, nil, testNow)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Allocate() error = %v, want ValidationError", err)
			}
		})
	}
}
