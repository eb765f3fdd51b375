package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID          string          `json:"id"`
	HoldID      string          `json:"hold_id"`
	RouteID     string          `json:"route_id"`
	RiderID     string          `json:"rider_id"`
	SeatCount   int             `json:"seat_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      BookingStatus   `json:"status"`
	PaymentRef  string          `json:"payment_ref"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
