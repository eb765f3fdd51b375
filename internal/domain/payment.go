package domain

import "time"

type PaymentState string

const (
	PaymentStateInitiated PaymentState = "INITIATED"
	PaymentStateSucceeded PaymentState = "SUCCEEDED"
	PaymentStateFailed    PaymentState = "FAILED"
	PaymentStateCancelled PaymentState = "CANCELLED"
	// PaymentStateRefundPending marks money the provider captured for a hold
	// that could no longer be converted.
	PaymentStateRefundPending PaymentState = "REFUND_PENDING"
)

// Resolved reports whether the attempt already received its outcome.
func (s PaymentState) Resolved() bool {
	return s != PaymentStateInitiated
}

type PaymentOutcome string

const (
	OutcomeSuccess   PaymentOutcome = "SUCCESS"
	OutcomeFailed    PaymentOutcome = "FAILED"
	OutcomeCancelled PaymentOutcome = "CANCELLED"
)

func (o PaymentOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailed, OutcomeCancelled:
		return true
	}
	return false
}

type PaymentAttempt struct {
	ID               string       `json:"id"`
	HoldID           string       `json:"hold_id"`
	RouteID          string       `json:"route_id"`
	ProviderRef      string       `json:"provider_ref"`
	AmountMinorUnits int64        `json:"amount_minor_units"`
	Currency         string       `json:"currency"`
	State            PaymentState `json:"state"`
	Superseded       bool         `json:"superseded"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
