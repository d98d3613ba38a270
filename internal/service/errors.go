package service

import "errors"

var (
	// ErrActiveOrder signals that the user already has a non-terminal order.
	ErrActiveOrder = errors.New("service: active order exists")
	// ErrGatewayUnavailable signals a failed payment gateway call before any mutation.
	ErrGatewayUnavailable = errors.New("service: payment gateway unavailable")
	// ErrOrderNotFound signals a confirmation request for an unknown order.
	ErrOrderNotFound = errors.New("service: order not found")
	// ErrTokenMismatch signals that the payment id from the button token does not
	// match the payment stored for the order.
	ErrTokenMismatch = errors.New("service: payment token mismatch")
	// ErrConfirmRetryable signals a failure that left no durable state change,
	// or one fully undone by the compensating rollback. The user may retry.
	ErrConfirmRetryable = errors.New("service: confirmation failed, retry")
	// ErrDeliveryFailed signals that the payment settled but the final order
	// status write failed. Payment state is durably correct.
	ErrDeliveryFailed = errors.New("service: delivery status update failed")
)

// IncidentError marks the critical path: the order advanced to payment_confirmed,
// the payment write failed, and the compensating rollback failed too.
type IncidentError struct {
	Code string
	Err  error
}

func (e *IncidentError) Error() string {
	return "service: payment incident " + e.Code + ": " + e.Err.Error()
}

func (e *IncidentError) Unwrap() error { return e.Err }
