package models

import (
	"testing"
	"time"
)

func TestNextDueDate(t *testing.T) {
	due := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		recurrence string
		want       time.Time
	}{
		{RecurrenceWeekly, time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)},
		{RecurrenceMonthly, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)}, // May 31 + 1 month normalizes
		{RecurrenceOneTime, due},
	}
	for _, tt := range tests {
		t.Run(tt.recurrence, func(t *testing.T) {
			o := &Obligation{DueDate: due, Recurrence: tt.recurrence}
			if got := o.NextDueDate(); !got.Equal(tt.want) {
				t.Errorf("NextDueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdvanceOutstanding(t *testing.T) {
	if !(&Advance{Status: AdvanceApproved}).Outstanding() {
		t.Errorf("approved advance should be outstanding")
	}
	if (&Advance{Status: AdvanceRepaid}).Outstanding() {
		t.Errorf("repaid advance should not be outstanding")
	}
}

func TestBucketHasTarget(t *testing.T) {
	if (&Bucket{}).HasTarget() {
		t.Errorf("zero target bucket reports a target")
	}
	if !(&Bucket{TargetAmount: 100}).HasTarget() {
		t.Errorf("bucket with target amount reports none")
	}
}
