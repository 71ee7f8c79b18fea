package models

import "time"

// BucketDeduction is one bucket's contribution to covering an expense.
type BucketDeduction struct {
	BucketName string `json:"bucket_name"`
	Amount     int64  `json:"amount"` // paise
	NewBalance int64  `json:"new_balance"`
}

// ExpenseEvent is an immutable record of money spent, including which
// buckets supplied the funds and any portion no bucket could cover.
type ExpenseEvent struct {
	ID         string            `json:"id"`
	UserID     int64             `json:"user_id"`
	Amount     int64             `json:"amount"` // paise, full requested amount
	Category   string            `json:"category"`
	Deductions []BucketDeduction `json:"deductions"`
	Uncovered  int64             `json:"uncovered_amount"` // paise recorded as debt
	SpentAt    time.Time         `json:"spent_at"`
	RecordedAt time.Time         `json:"recorded_at"`
}
