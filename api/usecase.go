package api

import (
	"context"

	"github.com/openride/seatreserve/internal/auth"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/service/booking"
	"github.com/openride/seatreserve/internal/service/catalog"
	"github.com/openride/seatreserve/internal/service/payment"
)

// BookingUseCase is implemented by booking.Facade.
type BookingUseCase interface {
	SearchRoutes(ctx context.Context, q catalog.Query) ([]booking.RouteView, error)
	CreateRoute(ctx context.Context, input catalog.CreateRouteInput) (*booking.RouteView, error)
	GetRoute(ctx context.Context, routeID string) (*booking.RouteView, error)
	MyRoutes(ctx context.Context, driverID string) ([]booking.RouteView, error)
	SetRouteStatus(ctx context.Context, routeID, driverID string, status domain.RouteStatus) (*booking.RouteView, error)
	UpdateRoute(ctx context.Context, routeID, driverID string, input catalog.UpdateRouteInput) (*booking.RouteView, error)
	DeleteRoute(ctx context.Context, routeID, driverID string) error

	RequestHold(ctx context.Context, routeID, riderID string, seats int) (*domain.SeatHold, error)
	GetHold(ctx context.Context, holdID, riderID string) (*domain.SeatHold, error)
	CancelHold(ctx context.Context, holdID, riderID string) (*domain.SeatHold, error)
	InitiatePayment(ctx context.Context, holdID, riderID string) (*payment.Params, error)
	ConfirmBooking(ctx context.Context, txnRef string, outcome domain.PaymentOutcome) (*payment.CallbackResult, error)

	GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
	MyBookings(ctx context.Context, riderID string) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID, riderID string) (*domain.Booking, error)
	Ticket(ctx context.Context, bookingID, riderID string) (*booking.TicketBundle, error)
	RateBooking(ctx context.Context, bookingID, riderID string, score int, comment string) (*domain.Rating, error)
	DriverRatings(ctx context.Context, driverID string) ([]domain.Rating, error)
}

// AuthUseCase is implemented by auth.Service.
type AuthUseCase interface {
	Register(ctx context.Context, in auth.RegisterInput) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
}
