package engine

import "fmt"

// ValidationError rejects malformed input before any mutation happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError is returned when an expense exceeds the ledger's
// total balance and force was not set. It is a recoverable condition: the
// caller may resubmit with force=true. No balances have changed.
type InsufficientFundsError struct {
	Requested      int64 // paise
	TotalAvailable int64 // paise, sum of all balances before the attempt
	Shortfall      int64 // paise
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d, available %d, shortfall %d",
		e.Requested, e.TotalAvailable, e.Shortfall)
}

// Guardrail rejection reason codes.
const (
	ReasonBelowMinimum       = "amount_below_minimum"
	ReasonAboveMaximum       = "amount_above_maximum"
	ReasonOverGuardrail      = "amount_over_guardrail"
	ReasonTooManyActive      = "too_many_active_advances"
	ReasonOverdueOutstanding = "overdue_advance_outstanding"
	ReasonLimitExhausted     = "advance_limit_exhausted"
)

// GuardrailError denies an advance request with a typed reason code.
type GuardrailError struct {
	Reason string
	Detail string
}

func (e *GuardrailError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("advance rejected: %s", e.Reason)
	}
	return fmt.Sprintf("advance rejected: %s (%s)", e.Reason, e.Detail)
}
