package engine

import (
	"testing"

	"github.com/Dan9191/gigfin-service/internal/models"
)

func TestBand(t *testing.T) {
	cfg := testEngineConfig()
	tests := []struct {
		score float64
		want  string
	}{
		{0, RiskLow},
		{39.9, RiskLow},
		{40, RiskModerate},
		{64.9, RiskModerate},
		{65, RiskHigh},
		{84.9, RiskHigh},
		{85, RiskCritical},
		{100, RiskCritical},
	}
	for _, tt := range tests {
		if got := Band(cfg, tt.score); got != tt.want {
			t.Errorf("Band(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScoreEmptyLedger(t *testing.T) {
	cfg := testEngineConfig()
	result := Score(cfg, nil, nil, nil, models.IncomeStats{}, testNow)
	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
	if result.Level != RiskLow {
		t.Errorf("Level = %s, want %s", result.Level, RiskLow)
	}
	if !result.LowConfidence {
		t.Errorf("LowConfidence = false, want true with no samples")
	}
	if len(result.Factors) != 4 {
		t.Errorf("factors = %d, want 4", len(result.Factors))
	}
}

func TestScoreShortfallPressure(t *testing.T) {
	cfg := testEngineConfig()
	daily := []models.DailyProjection{
		{Status: models.DaySafe},
		{Status: models.DayShortfall},
		{Status: models.DayShortfall},
		{Status: models.DayTight},
		{Status: models.DayShortfall},
	}
	result := Score(cfg, daily, nil, nil, models.IncomeStats{SampleDays: 5}, testNow)
	for _, f := range result.Factors {
		if f.Name == "forecast_shortfalls" {
			if f.Value != 60 { // 3 days x 20
				t.Errorf("forecast_shortfalls = %v, want 60", f.Value)
			}
			return
		}
	}
	t.Fatalf("forecast_shortfalls factor missing: %+v", result.Factors)
}

func TestObligationPressure(t *testing.T) {
	buckets := []*models.Bucket{{Name: "rent", CurrentBalance: 200000}}
	tests := []struct {
		name       string
		obligation models.Obligation
		want       float64
	}{
		{
			name:       "fully covered",
			obligation: models.Obligation{Amount: 150000, LinkedBucket: "rent", DueDate: testNow.AddDate(0, 0, 2), IsActive: true},
			want:       0,
		},
		{
			name:       "under half covered and imminent",
			obligation: models.Obligation{Amount: 500000, LinkedBucket: "rent", DueDate: testNow.AddDate(0, 0, 2), IsActive: true},
			want:       100, // 90 * 1.3 clamped
		},
		{
			name:       "under half covered this week",
			obligation: models.Obligation{Amount: 500000, LinkedBucket: "rent", DueDate: testNow.AddDate(0, 0, 6), IsActive: true},
			want:       99, // 90 * 1.1
		},
		{
			name:       "past due and unpaid",
			obligation: models.Obligation{Amount: 500000, LinkedBucket: "rent", DueDate: testNow.AddDate(0, 0, -3), IsActive: true},
			want:       100, // folded to day zero, maximum urgency
		},
		{
			name:       "inactive ignored",
			obligation: models.Obligation{Amount: 500000, LinkedBucket: "rent", DueDate: testNow.AddDate(0, 0, 2), IsActive: false},
			want:       0,
		},
		{
			name:       "beyond 30 days ignored",
			obligation: models.Obligation{Amount: 500000, LinkedBucket: "rent", DueDate: testNow.AddDate(0, 0, 45), IsActive: true},
			want:       0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := obligationPressure(buckets, []*models.Obligation{&tt.obligation}, testNow)
			if got != tt.want {
				t.Errorf("obligationPressure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBelowTargetPressure(t *testing.T) {
	buckets := []*models.Bucket{
		{Name: "emergency", TargetAmount: 100000, CurrentBalance: 40000},
		{Name: "savings", TargetAmount: 100000, CurrentBalance: 120000},
		{Name: "discretionary"}, // no target, excluded
	}
	if got := belowTargetPressure(buckets); got != 50 {
		t.Errorf("belowTargetPressure() = %v, want 50", got)
	}
	if got := belowTargetPressure(nil); got != 0 {
		t.Errorf("belowTargetPressure(nil) = %v, want 0", got)
	}
}
