package models

import "time"

// Bucket is a purpose-tagged sub-account of one user's ledger. All amounts
// are in paise.
type Bucket struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Name           string     `json:"name"`
	DisplayName    string     `json:"display_name"`
	Priority       int        `json:"priority"`
	TargetAmount   int64      `json:"target_amount"` // 0 means no target
	CurrentBalance int64      `json:"current_balance"`
	BasePercent    float64    `json:"base_percent"` // share of incoming income, 0-100
	IsReserved     bool       `json:"is_reserved"`  // funds linked obligations only
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAllocation *time.Time `json:"last_allocation_at,omitempty"`
}

// HasTarget reports whether the bucket has a funding target configured.
func (b *Bucket) HasTarget() bool {
	return b.TargetAmount > 0
}
