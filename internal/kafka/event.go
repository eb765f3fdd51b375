package kafka

import "time"

// Event types carried in BookingEvent.Type.
const (
	EventHoldCreated      = "hold_created"
	EventHoldReleased     = "hold_released"
	EventHoldExpired      = "hold_expired"
	EventPaymentInitiated = "payment_initiated"
	EventPaymentFailed    = "payment_failed"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventRefundRequested  = "refund_requested"
	EventRouteUpdated     = "route_updated"
	EventRouteDeleted     = "route_deleted"
)

// BookingEvent is the JSON payload published for every seat, payment and
// booking state change. Messages are keyed by RouteID.
type BookingEvent struct {
	Type       string    `json:"type"`
	RouteID    string    `json:"route_id"`
	HoldID     string    `json:"hold_id,omitempty"`
	BookingID  string    `json:"booking_id,omitempty"`
	RiderID    string    `json:"rider_id,omitempty"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	SeatCount  int       `json:"seat_count,omitempty"`
	Available  *int      `json:"available,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NotifiesRider reports whether the event is also routed to the
// notifications topic.
func (e BookingEvent) NotifiesRider() bool {
	switch e.Type {
	case EventBookingConfirmed, EventBookingCancelled, EventRefundRequested, EventHoldExpired:
		return true
	}
	return false
}
