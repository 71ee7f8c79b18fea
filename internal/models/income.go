package models

import "time"

// IncomeEvent is an immutable record of money earned. Corrections are new
// compensating records, never edits.
type IncomeEvent struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Amount     int64     `json:"amount"` // paise
	Source     string    `json:"source"` // "uber", "swiggy", "cash", ...
	EarnedAt   time.Time `json:"earned_at"`
	RecordedAt time.Time `json:"recorded_at"`
}
