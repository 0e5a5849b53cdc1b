package viewmodel

import "fmt"

// ValidationError reports a precondition failure on SubmitOrder or a loan
// request. No state was mutated and no request was issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// OrderRejected reports that the server declined an order after its
// optimistic mutation was applied. By the time the caller sees this error the
// inverse mutation has already been replayed and the account state matches
// its pre-order value.
type OrderRejected struct {
	Order PendingOrder
	Cause error
}

func (e *OrderRejected) Error() string {
	return fmt.Sprintf("order %s rejected: %s %d %s @ %s: %v",
		e.Order.ID, e.Order.Kind, e.Order.Quantity, e.Order.Symbol, e.Order.Price, e.Cause)
}

func (e *OrderRejected) Unwrap() error {
	return e.Cause
}
