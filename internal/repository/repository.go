package repository

import (
	"context"

	"github.com/openride/seatreserve/internal/domain"
)

type RouteRepository interface {
	Create(ctx context.Context, route *domain.Route) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	ListByPair(ctx context.Context, origin, destination string) ([]domain.Route, error)
	ListByDriver(ctx context.Context, driverID string) ([]domain.Route, error)
	UpdateStatus(ctx context.Context, id string, status domain.RouteStatus) (*domain.Route, error)
	// Update stores the departure time, seat count and price of route.
	Update(ctx context.Context, route *domain.Route) error
	// Delete removes a route that was never held. A route with hold history
	// fails with domain.ErrConflict.
	Delete(ctx context.Context, id string) error
}

// HoldRepository persists seat holds. Transition and Convert are conditional on
// the current state and fail with domain.ErrConflict when it does not match.
type HoldRepository interface {
	Create(ctx context.Context, hold *domain.SeatHold) error
	GetByID(ctx context.Context, id string) (*domain.SeatHold, error)
	ListActiveByRoute(ctx context.Context, routeID string) ([]domain.SeatHold, error)
	RoutesWithActiveHolds(ctx context.Context) ([]string, error)
	Transition(ctx context.Context, id string, from, to domain.HoldState) error
	// Convert marks an ACTIVE hold CONVERTED and stores the booking in one step.
	Convert(ctx context.Context, holdID string, booking *domain.Booking) error
}

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByHoldID(ctx context.Context, holdID string) (*domain.Booking, error)
	ListByRider(ctx context.Context, riderID string) ([]domain.Booking, error)
	ConfirmedSeats(ctx context.Context, routeID string) (int, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) error
}

type PaymentRepository interface {
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error
	GetByProviderRef(ctx context.Context, providerRef string) (*domain.PaymentAttempt, error)
	// SupersedeLive cancels and flags every live INITIATED attempt of the hold.
	SupersedeLive(ctx context.Context, holdID string) (int, error)
	UpdateState(ctx context.Context, id string, from, to domain.PaymentState) error
	ListInitiated(ctx context.Context) ([]domain.PaymentAttempt, error)
}

// RatingRepository stores at most one rating per booking; a second Create for
// the same booking fails with domain.ErrConflict.
type RatingRepository interface {
	Create(ctx context.Context, rating *domain.Rating) error
	GetByBooking(ctx context.Context, bookingID string) (*domain.Rating, error)
	ListByDriver(ctx context.Context, driverID string) ([]domain.Rating, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Store groups the repositories of one backend.
type Store struct {
	Routes   RouteRepository
	Holds    HoldRepository
	Bookings BookingRepository
	Payments PaymentRepository
	Ratings  RatingRepository
	Users    UserRepository
}
