// Package booking is the client-facing surface of the reservation service. It
// composes the route catalog, the reservation ledger and the payment
// coordinator, publishes booking events and translates internal errors into
// client codes. It keeps no state of its own.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openride/seatreserve/config"
	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/kafka"
	"github.com/openride/seatreserve/internal/repository"
	"github.com/openride/seatreserve/internal/service/catalog"
	"github.com/openride/seatreserve/internal/service/payment"
	"github.com/openride/seatreserve/internal/ticket"
)

// Ledger is the part of ledger.Ledger the facade calls directly.
type Ledger interface {
	Hold(ctx context.Context, routeID, riderID string, seatCount int, ttl time.Duration) (*domain.SeatHold, error)
	Release(ctx context.Context, holdID string) (*domain.SeatHold, error)
	Lookup(ctx context.Context, holdID string) (*domain.SeatHold, error)
	CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	ExpireOverdue(ctx context.Context) ([]domain.SeatHold, error)
	AvailableSeats(ctx context.Context, routeID string) (int, error)
}

type Payments interface {
	Initiate(ctx context.Context, holdID string, customer payment.Customer) (*payment.Params, error)
	OnProviderCallback(ctx context.Context, providerRef string, outcome domain.PaymentOutcome) (*payment.CallbackResult, error)
	Reconcile(ctx context.Context) (int, error)
}

type Emitter interface {
	Emit(ctx context.Context, event kafka.BookingEvent)
}

// RouteView is a route together with its seats available at read time.
type RouteView struct {
	domain.Route
	AvailableSeats int `json:"available_seats"`
}

// TicketBundle is everything needed to render a booking's ticket.
type TicketBundle struct {
	Ticket  *ticket.Ticket  `json:"ticket"`
	Route   *domain.Route   `json:"route"`
	Booking *domain.Booking `json:"booking"`
}

type Facade struct {
	catalog  catalog.RouteUseCase
	ledger   Ledger
	payments Payments
	bookings repository.BookingRepository
	ratings  repository.RatingRepository
	users    repository.UserRepository
	tickets  *ticket.Issuer
	events   Emitter
	cfg      config.BookingConfig
	clock    clock.Clock
	logger   *slog.Logger
}

func NewFacade(
	routes catalog.RouteUseCase,
	ledger Ledger,
	payments Payments,
	store repository.Store,
	tickets *ticket.Issuer,
	events Emitter,
	cfg config.BookingConfig,
	clk clock.Clock,
	logger *slog.Logger,
) *Facade {
	return &Facade{
		catalog:  routes,
		ledger:   ledger,
		payments: payments,
		bookings: store.Bookings,
		ratings:  store.Ratings,
		users:    store.Users,
		tickets:  tickets,
		events:   events,
		cfg:      cfg,
		clock:    clk,
		logger:   logger,
	}
}

func (f *Facade) SearchRoutes(ctx context.Context, q catalog.Query) ([]RouteView, error) {
	routes, err := f.catalog.Search(ctx, q)
	if err != nil {
		return nil, Translate(err)
	}
	views := make([]RouteView, 0, len(routes))
	for _, r := range routes {
		available, err := f.ledger.AvailableSeats(ctx, r.ID)
		if err != nil {
			return nil, Translate(err)
		}
		views = append(views, RouteView{Route: r, AvailableSeats: available})
	}
	return views, nil
}

func (f *Facade) CreateRoute(ctx context.Context, input catalog.CreateRouteInput) (*RouteView, error) {
	route, err := f.catalog.Create(ctx, input)
	if err != nil {
		return nil, Translate(err)
	}
	f.publish(ctx, kafka.BookingEvent{
		Type:      kafka.EventRouteUpdated,
		RouteID:   route.ID,
		Status:    string(route.Status),
		Available: intPtr(route.TotalSeats),
	})
	return &RouteView{Route: *route, AvailableSeats: route.TotalSeats}, nil
}

func (f *Facade) GetRoute(ctx context.Context, routeID string) (*RouteView, error) {
	route, err := f.catalog.Get(ctx, routeID)
	if err != nil {
		return nil, Translate(err)
	}
	return f.view(ctx, route)
}

func (f *Facade) MyRoutes(ctx context.Context, driverID string) ([]RouteView, error) {
	routes, err := f.catalog.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, Translate(err)
	}
	views := make([]RouteView, 0, len(routes))
	for i := range routes {
		v, err := f.view(ctx, &routes[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (f *Facade) SetRouteStatus(ctx context.Context, routeID, driverID string, status domain.RouteStatus) (*RouteView, error) {
	route, err := f.catalog.SetStatus(ctx, routeID, driverID, status)
	if err != nil {
		return nil, Translate(err)
	}
	v, err := f.view(ctx, route)
	if err != nil {
		return nil, err
	}
	f.publish(ctx, kafka.BookingEvent{
		Type:      kafka.EventRouteUpdated,
		RouteID:   route.ID,
		Status:    string(route.Status),
		Available: intPtr(v.AvailableSeats),
	})
	return v, nil
}

// UpdateRoute edits the driver's route. Capacity and price changes are checked
// against the seats already held or booked.
func (f *Facade) UpdateRoute(ctx context.Context, routeID, driverID string, input catalog.UpdateRouteInput) (*RouteView, error) {
	route, err := f.catalog.Update(ctx, routeID, driverID, input)
	if err != nil {
		return nil, Translate(err)
	}
	v, err := f.view(ctx, route)
	if err != nil {
		return nil, err
	}
	f.publish(ctx, kafka.BookingEvent{
		Type:      kafka.EventRouteUpdated,
		RouteID:   route.ID,
		Status:    string(route.Status),
		Available: intPtr(v.AvailableSeats),
	})
	return v, nil
}

func (f *Facade) DeleteRoute(ctx context.Context, routeID, driverID string) error {
	if err := f.catalog.Delete(ctx, routeID, driverID); err != nil {
		return Translate(err)
	}
	f.publish(ctx, kafka.BookingEvent{
		Type:      kafka.EventRouteDeleted,
		RouteID:   routeID,
		Available: intPtr(0),
	})
	return nil
}

// RequestHold reserves seats for riderID for the configured hold TTL.
func (f *Facade) RequestHold(ctx context.Context, routeID, riderID string, seats int) (*domain.SeatHold, error) {
	if seats > f.cfg.MaxSeatsPerHold {
		return nil, Translate(fmt.Errorf("at most %d seats per hold: %w", f.cfg.MaxSeatsPerHold, domain.ErrValidation))
	}
	hold, err := f.ledger.Hold(ctx, routeID, riderID, seats, f.cfg.HoldTTL())
	if err != nil {
		return nil, Translate(err)
	}

	event := kafka.BookingEvent{
		Type:      kafka.EventHoldCreated,
		RouteID:   hold.RouteID,
		HoldID:    hold.ID,
		RiderID:   hold.RiderID,
		SeatCount: hold.SeatCount,
		ExpiresAt: hold.ExpiresAt,
	}
	if available, err := f.ledger.AvailableSeats(ctx, routeID); err == nil {
		event.Available = &available
	}
	f.publish(ctx, event)
	return hold, nil
}

// GetHold is limited to the rider who owns the hold.
func (f *Facade) GetHold(ctx context.Context, holdID, riderID string) (*domain.SeatHold, error) {
	hold, err := f.ownedHold(ctx, holdID, riderID)
	if err != nil {
		return nil, Translate(err)
	}
	return hold, nil
}

// CancelHold releases the rider's hold. Cancelling a hold that is no longer
// ACTIVE returns it unchanged.
func (f *Facade) CancelHold(ctx context.Context, holdID, riderID string) (*domain.SeatHold, error) {
	before, err := f.ownedHold(ctx, holdID, riderID)
	if err != nil {
		return nil, Translate(err)
	}
	hold, err := f.ledger.Release(ctx, holdID)
	if err != nil {
		return nil, Translate(err)
	}
	if before.State != domain.HoldStateActive {
		return hold, nil
	}

	event := kafka.BookingEvent{
		Type:      kafka.EventHoldReleased,
		RouteID:   hold.RouteID,
		HoldID:    hold.ID,
		RiderID:   hold.RiderID,
		SeatCount: hold.SeatCount,
		Status:    string(hold.State),
	}
	if available, err := f.ledger.AvailableSeats(ctx, hold.RouteID); err == nil {
		event.Available = &available
	}
	f.publish(ctx, event)
	return hold, nil
}

// InitiatePayment opens a payment attempt for the rider's hold and returns the
// parameters the provider checkout needs.
func (f *Facade) InitiatePayment(ctx context.Context, holdID, riderID string) (*payment.Params, error) {
	if _, err := f.ownedHold(ctx, holdID, riderID); err != nil {
		return nil, Translate(err)
	}
	user, err := f.users.GetByID(ctx, riderID)
	if err != nil {
		return nil, Translate(err)
	}
	params, err := f.payments.Initiate(ctx, holdID, payment.Customer{Name: user.Name, Email: user.Email})
	if err != nil {
		return nil, Translate(err)
	}
	return params, nil
}

// ConfirmBooking applies a provider callback. The returned result is nil when
// err is not.
func (f *Facade) ConfirmBooking(ctx context.Context, txnRef string, outcome domain.PaymentOutcome) (*payment.CallbackResult, error) {
	result, err := f.payments.OnProviderCallback(ctx, txnRef, outcome)
	if err != nil {
		return nil, Translate(err)
	}
	if result.Booking != nil && !result.Duplicate {
		b := result.Booking
		event := kafka.BookingEvent{
			Type:       kafka.EventBookingConfirmed,
			RouteID:    b.RouteID,
			HoldID:     b.HoldID,
			BookingID:  b.ID,
			RiderID:    b.RiderID,
			PaymentRef: b.PaymentRef,
			SeatCount:  b.SeatCount,
			Amount:     b.TotalAmount.StringFixed(2),
			Status:     string(b.Status),
		}
		if available, err := f.ledger.AvailableSeats(ctx, b.RouteID); err == nil {
			event.Available = &available
		}
		f.publish(ctx, event)
	}
	return result, nil
}

// GetBooking is visible to the rider who booked and to the route's driver.
func (f *Facade) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	b, err := f.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, Translate(err)
	}
	if b.RiderID == userID {
		return b, nil
	}
	route, err := f.catalog.Get(ctx, b.RouteID)
	if err != nil {
		return nil, Translate(err)
	}
	if route.DriverID != userID {
		return nil, Translate(fmt.Errorf("booking %s: %w", bookingID, domain.ErrForbidden))
	}
	return b, nil
}

func (f *Facade) MyBookings(ctx context.Context, riderID string) ([]domain.Booking, error) {
	bookings, err := f.bookings.ListByRider(ctx, riderID)
	if err != nil {
		return nil, Translate(err)
	}
	return bookings, nil
}

// CancelBooking is the refund flow: a CONFIRMED booking goes to CANCELLED and
// its seats return to the route.
func (f *Facade) CancelBooking(ctx context.Context, bookingID, riderID string) (*domain.Booking, error) {
	b, err := f.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, Translate(err)
	}
	if b.RiderID != riderID {
		return nil, Translate(fmt.Errorf("booking %s: %w", bookingID, domain.ErrForbidden))
	}
	wasConfirmed := b.Status == domain.BookingStatusConfirmed

	b, err = f.ledger.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, Translate(err)
	}
	if wasConfirmed {
		event := kafka.BookingEvent{
			Type:       kafka.EventBookingCancelled,
			RouteID:    b.RouteID,
			HoldID:     b.HoldID,
			BookingID:  b.ID,
			RiderID:    b.RiderID,
			PaymentRef: b.PaymentRef,
			SeatCount:  b.SeatCount,
			Amount:     b.TotalAmount.StringFixed(2),
			Status:     string(b.Status),
		}
		if available, err := f.ledger.AvailableSeats(ctx, b.RouteID); err == nil {
			event.Available = &available
		}
		f.publish(ctx, event)
	}
	return b, nil
}

// Ticket issues the ticket of a CONFIRMED booking owned by riderID. The
// booking's creation time is the issue time, so the same booking always
// yields the same ticket.
func (f *Facade) Ticket(ctx context.Context, bookingID, riderID string) (*TicketBundle, error) {
	b, err := f.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, Translate(err)
	}
	if b.RiderID != riderID {
		return nil, Translate(fmt.Errorf("booking %s: %w", bookingID, domain.ErrForbidden))
	}
	t, err := f.tickets.Issue(*b, b.CreatedAt)
	if err != nil {
		return nil, Translate(err)
	}
	route, err := f.catalog.Get(ctx, b.RouteID)
	if err != nil {
		return nil, Translate(err)
	}
	return &TicketBundle{Ticket: t, Route: route, Booking: b}, nil
}

// RateBooking records the rider's score for the driver of a CONFIRMED booking.
// Each booking is rated once.
func (f *Facade) RateBooking(ctx context.Context, bookingID, riderID string, score int, comment string) (*domain.Rating, error) {
	if score < domain.MinRatingScore || score > domain.MaxRatingScore {
		return nil, Translate(fmt.Errorf("rating must be between %d and %d: %w",
			domain.MinRatingScore, domain.MaxRatingScore, domain.ErrValidation))
	}
	b, err := f.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, Translate(err)
	}
	if b.RiderID != riderID {
		return nil, Translate(fmt.Errorf("booking %s: %w", bookingID, domain.ErrForbidden))
	}
	if b.Status != domain.BookingStatusConfirmed {
		return nil, Translate(fmt.Errorf("booking %s is %s: %w", bookingID, b.Status, domain.ErrInvalidTransition))
	}
	route, err := f.catalog.Get(ctx, b.RouteID)
	if err != nil {
		return nil, Translate(err)
	}

	rating := &domain.Rating{
		ID:        uuid.NewString(),
		BookingID: b.ID,
		RouteID:   b.RouteID,
		RiderID:   riderID,
		DriverID:  route.DriverID,
		Score:     score,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: f.clock.Now().UTC(),
	}
	if err := f.ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, Translate(fmt.Errorf("booking %s is already rated: %w", bookingID, domain.ErrConflict))
		}
		return nil, Translate(err)
	}
	f.logger.Info("booking rated",
		slog.String("booking_id", b.ID),
		slog.String("driver_id", route.DriverID),
		slog.Int("score", score))
	return rating, nil
}

func (f *Facade) DriverRatings(ctx context.Context, driverID string) ([]domain.Rating, error) {
	ratings, err := f.ratings.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, Translate(err)
	}
	return ratings, nil
}

// ExpireOverdue runs one expiry sweep and announces every hold it expired.
func (f *Facade) ExpireOverdue(ctx context.Context) ([]domain.SeatHold, error) {
	expired, err := f.ledger.ExpireOverdue(ctx)

	available := make(map[string]int)
	for _, h := range expired {
		n, ok := available[h.RouteID]
		if !ok {
			if seats, aerr := f.ledger.AvailableSeats(ctx, h.RouteID); aerr == nil {
				n, ok = seats, true
				available[h.RouteID] = seats
			}
		}
		event := kafka.BookingEvent{
			Type:      kafka.EventHoldExpired,
			RouteID:   h.RouteID,
			HoldID:    h.ID,
			RiderID:   h.RiderID,
			SeatCount: h.SeatCount,
			ExpiresAt: h.ExpiresAt,
			Status:    string(h.State),
		}
		if ok {
			event.Available = intPtr(n)
		}
		f.publish(ctx, event)
	}
	if err != nil {
		return expired, Translate(err)
	}
	return expired, nil
}

func (f *Facade) Reconcile(ctx context.Context) (int, error) {
	n, err := f.payments.Reconcile(ctx)
	if n > 0 {
		f.logger.Info("reconciled payment attempts", slog.Int("count", n))
	}
	return n, Translate(err)
}

func (f *Facade) AvailableSeats(ctx context.Context, routeID string) (int, error) {
	n, err := f.catalog.AvailableSeats(ctx, routeID)
	if err != nil {
		return 0, Translate(err)
	}
	return n, nil
}

func (f *Facade) ownedHold(ctx context.Context, holdID, riderID string) (*domain.SeatHold, error) {
	hold, err := f.ledger.Lookup(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.RiderID != riderID {
		return nil, fmt.Errorf("hold %s: %w", holdID, domain.ErrForbidden)
	}
	return hold, nil
}

func (f *Facade) view(ctx context.Context, route *domain.Route) (*RouteView, error) {
	available, err := f.ledger.AvailableSeats(ctx, route.ID)
	if err != nil {
		return nil, Translate(err)
	}
	return &RouteView{Route: *route, AvailableSeats: available}, nil
}

func (f *Facade) publish(ctx context.Context, event kafka.BookingEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = f.clock.Now().UTC()
	}
	f.events.Emit(ctx, event)
}

func intPtr(n int) *int {
	return &n
}
