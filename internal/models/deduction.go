package models

// DeductionResult is the outcome of a committed expense deduction.
type DeductionResult struct {
	Deductions      []BucketDeduction `json:"deductions"`
	Uncovered       int64             `json:"uncovered_amount"` // paise recorded as debt
	TouchedReserved bool              `json:"touched_reserved"`
}

// TotalDeducted returns the amount actually withdrawn from buckets.
func (r *DeductionResult) TotalDeducted() int64 {
	var sum int64
	for _, d := range r.Deductions {
		sum += d.Amount
	}
	return sum
}
