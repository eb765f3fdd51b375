package domain

import "time"

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// Rating is a rider's score for the driver of a confirmed booking.
type Rating struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	RouteID   string    `json:"route_id"`
	RiderID   string    `json:"rider_id"`
	DriverID  string    `json:"driver_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
