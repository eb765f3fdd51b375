package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RouteStatus string

const (
	RouteStatusActive    RouteStatus = "ACTIVE"
	RouteStatusInactive  RouteStatus = "INACTIVE"
	RouteStatusCompleted RouteStatus = "COMPLETED"
)

func (s RouteStatus) Valid() bool {
	switch s {
	case RouteStatusActive, RouteStatusInactive, RouteStatusCompleted:
		return true
	}
	return false
}

type Route struct {
	ID            string          `json:"id"`
	DriverID      string          `json:"driver_id"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	DepartureTime time.Time       `json:"departure_time"`
	TotalSeats    int             `json:"total_seats"`
	PricePerSeat  decimal.Decimal `json:"price_per_seat"`
	Status        RouteStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SeatUsage is the capacity breakdown of a route at one instant.
type SeatUsage struct {
	Total     int `json:"total"`
	Held      int `json:"held"`
	Confirmed int `json:"confirmed"`
}

func (u SeatUsage) Available() int {
	if n := u.Total - u.Held - u.Confirmed; n > 0 {
		return n
	}
	return 0
}
