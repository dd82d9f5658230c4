package checkout

import "errors"

// ErrIllegalTransition is returned when an attempt is driven out of order,
// e.g. placing an order before validation has passed.
var ErrIllegalTransition = errors.New("illegal checkout status transition")

// Status is the phase of one checkout attempt.
type Status string

const (
	StatusFilling               Status = "FILLING"
	StatusValidating            Status = "VALIDATING"
	StatusValid                 Status = "VALID"
	StatusPlacingOrder          Status = "PLACING_ORDER"
	StatusCreatingPaymentIntent Status = "CREATING_PAYMENT_INTENT"
	StatusAwaitingPaymentWidget Status = "AWAITING_PAYMENT_WIDGET"
	StatusVerifyingPayment      Status = "VERIFYING_PAYMENT"
	StatusFinalizing            Status = "FINALIZING"
	StatusPlaced                Status = "PLACED"
	StatusFailed                Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the attempt can make no further progress.
// Failed is not listed: a failed attempt may return to Filling for a user
// retry unless the failure itself was terminal (tracked on the attempt).
func (s Status) IsTerminal() bool {
	return s == StatusPlaced
}

// transitions is the legal edge set. Every non-terminal state may also move
// to Failed, handled in CanTransitionTo rather than repeated per row.
var transitions = map[Status][]Status{
	StatusFilling:               {StatusValidating},
	StatusValidating:            {StatusValid, StatusFilling},
	StatusValid:                 {StatusPlacingOrder, StatusCreatingPaymentIntent},
	StatusPlacingOrder:          {StatusFinalizing},
	StatusCreatingPaymentIntent: {StatusAwaitingPaymentWidget},
	StatusAwaitingPaymentWidget: {StatusVerifyingPayment, StatusFilling},
	StatusVerifyingPayment:      {StatusFinalizing},
	StatusFinalizing:            {StatusPlaced},
	StatusFailed:                {StatusFilling},
}

// CanTransitionTo reports whether from -> to is a legal edge.
func CanTransitionTo(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
