package models

import "time"

// Recurrence rules for obligations.
const (
	RecurrenceOneTime = "one_time"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Obligation is a scheduled mandatory outflow (rent, EMI, tax) funded by a
// linked bucket. Amount is in paise.
type Obligation struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Name         string     `json:"name"`
	Amount       int64      `json:"amount"`
	DueDate      time.Time  `json:"due_date"`
	Recurrence   string     `json:"recurrence"`
	LinkedBucket string     `json:"linked_bucket"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastPaidAt   *time.Time `json:"last_paid_at,omitempty"`
}

// NextDueDate returns the due date advanced by one recurrence period. For
// one-time obligations the due date does not move.
func (o *Obligation) NextDueDate() time.Time {
	switch o.Recurrence {
	case RecurrenceWeekly:
		return o.DueDate.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return o.DueDate.AddDate(0, 1, 0)
	default:
		return o.DueDate
	}
}
