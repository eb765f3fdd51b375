package domain

import "time"

type HoldState string

const (
	HoldStateActive    HoldState = "ACTIVE"
	HoldStateExpired   HoldState = "EXPIRED"
	HoldStateConverted HoldState = "CONVERTED"
	HoldStateReleased  HoldState = "RELEASED"
)

type SeatHold struct {
	ID        string    `json:"id"`
	RouteID   string    `json:"route_id"`
	RiderID   string    `json:"rider_id"`
	SeatCount int       `json:"seat_count"`
	State     HoldState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Overdue reports whether an ACTIVE hold has reached its deadline at now.
func (h SeatHold) Overdue(now time.Time) bool {
	return h.State == HoldStateActive && !now.Before(h.ExpiresAt)
}
