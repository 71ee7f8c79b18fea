package models

import "time"

// Advance statuses. "declined" is never stored: a rejected request simply
// creates no record. "overdue" is derived on read, never written back.
const (
	AdvanceApproved = "approved"
	AdvanceRepaid   = "repaid"
	AdvanceOverdue  = "overdue"
)

// Advance is a small credit issued against future earnings. Principal, fee
// and repayment amounts are in paise. Status is the only field mutated after
// creation.
type Advance struct {
	ID             string     `json:"id"`
	UserID         int64      `json:"user_id"`
	Principal      int64      `json:"principal"`
	Fee            int64      `json:"fee"`
	TotalRepayment int64      `json:"total_repayment"`
	Reason         string     `json:"reason,omitempty"`
	Status         string     `json:"status"`
	DueDate        time.Time  `json:"due_date"`
	CreatedAt      time.Time  `json:"created_at"`
	ApprovedAt     time.Time  `json:"approved_at"`
	RepaidAt       *time.Time `json:"repaid_at,omitempty"`
}

// Outstanding reports whether the advance still has to be repaid.
func (a *Advance) Outstanding() bool {
	return a.Status == AdvanceApproved
}

// Eligibility is the result of an advance eligibility check. MaxAmount is
// the largest principal the guardrails allow right now, in paise.
type Eligibility struct {
	MaxAmount    int64  `json:"max_amount"`
	CanRequest   bool   `json:"can_request"`
	Reason       string `json:"reason,omitempty"`
	WeeklyIncome int64  `json:"weekly_income_estimate"`
	Outstanding  int64  `json:"outstanding"`
	ActiveCount  int    `json:"active_count"`
}
