package models

// BucketDelta is one bucket's credit from an income allocation.
type BucketDelta struct {
	BucketName string  `json:"bucket_name"`
	Amount     int64   `json:"amount"` // paise
	Percent    float64 `json:"effective_percent"`
	Boosted    bool    `json:"boosted,omitempty"`
	Tapered    bool    `json:"tapered,omitempty"`
}

// AllocationResult is the outcome of distributing one income event across
// buckets. Sum of the deltas always equals the allocated amount exactly.
type AllocationResult struct {
	Deltas    []BucketDelta `json:"per_bucket_delta"`
	Remainder int64         `json:"remainder_to_discretionary"` // paise
}

// Total returns the amount distributed across all deltas.
func (r *AllocationResult) Total() int64 {
	var sum int64
	for _, d := range r.Deltas {
		sum += d.Amount
	}
	return sum
}
