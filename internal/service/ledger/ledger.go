// Package ledger owns seat capacity. Every mutation of held or confirmed seats
// runs under the route's lock, so for any route the ACTIVE hold seats plus the
// CONFIRMED booking seats never exceed TotalSeats.
//
// Expiry is lazy: any operation that touches a route first moves its overdue
// holds to EXPIRED. ExpireOverdue does the same for every route and is meant
// to be called periodically.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/lock"
	"github.com/openride/seatreserve/internal/metrics"
	"github.com/openride/seatreserve/internal/repository"
)

type Ledger struct {
	routes   repository.RouteRepository
	holds    repository.HoldRepository
	bookings repository.BookingRepository
	locker   lock.Locker
	clock    clock.Clock
	logger   *slog.Logger
}

type Option func(*Ledger)

func WithLocker(l lock.Locker) Option {
	return func(ld *Ledger) { ld.locker = l }
}

func WithClock(c clock.Clock) Option {
	return func(ld *Ledger) { ld.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(ld *Ledger) { ld.logger = logger }
}

func New(store repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		routes:   store.Routes,
		holds:    store.Holds,
		bookings: store.Bookings,
		locker:   lock.NewLocal(),
		clock:    clock.Real(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithRouteLock runs fn while holding the route's lock. Calls into the Ledger
// from fn for the same route would deadlock.
func (l *Ledger) WithRouteLock(ctx context.Context, routeID string, fn func(ctx context.Context) error) error {
	started := time.Now()
	unlock, err := l.locker.Lock(ctx, lock.RouteKey(routeID))
	metrics.LockWait("route", started)
	if err != nil {
		return fmt.Errorf("lock route %s: %w", routeID, err)
	}
	defer unlock()
	return fn(ctx)
}

// Hold reserves seatCount seats on an ACTIVE route for ttl.
func (l *Ledger) Hold(ctx context.Context, routeID, riderID string, seatCount int, ttl time.Duration) (*domain.SeatHold, error) {
	if seatCount <= 0 {
		return nil, fmt.Errorf("seat count must be positive, got %d: %w", seatCount, domain.ErrValidation)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("hold ttl must not be negative: %w", domain.ErrValidation)
	}

	var hold *domain.SeatHold
	err := l.WithRouteLock(ctx, routeID, func(ctx context.Context) error {
		route, err := l.routes.GetByID(ctx, routeID)
		if err != nil {
			return err
		}
		if _, err := l.expireRouteLocked(ctx, routeID); err != nil {
			return err
		}
		if route.Status != domain.RouteStatusActive {
			return fmt.Errorf("route %s is %s: %w", routeID, route.Status, domain.ErrRouteNotBookable)
		}

		usage, err := l.usageLocked(ctx, route)
		if err != nil {
			return err
		}
		if available := usage.Available(); available < seatCount {
			return fmt.Errorf("route %s has %d seats available, %d requested: %w",
				routeID, available, seatCount, domain.ErrInsufficientSeats)
		}

		now := l.clock.Now().UTC()
		hold = &domain.SeatHold{
			ID:        uuid.NewString(),
			RouteID:   routeID,
			RiderID:   riderID,
			SeatCount: seatCount,
			State:     domain.HoldStateActive,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		return l.holds.Create(ctx, hold)
	})
	metrics.LedgerOperation("hold", err)
	if err != nil {
		return nil, err
	}

	l.logger.Info("seats held",
		slog.String("hold_id", hold.ID),
		slog.String("route_id", routeID),
		slog.Int("seats", seatCount),
		slog.Time("expires_at", hold.ExpiresAt))
	return hold, nil
}

// Release returns an ACTIVE hold's seats. A hold already past its deadline is
// recorded as EXPIRED instead of RELEASED. Holds in any other state are
// returned unchanged.
func (l *Ledger) Release(ctx context.Context, holdID string) (*domain.SeatHold, error) {
	current, err := l.holds.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}

	var (
		hold    *domain.SeatHold
		changed bool
	)
	err = l.WithRouteLock(ctx, current.RouteID, func(ctx context.Context) error {
		hold, err = l.holds.GetByID(ctx, holdID)
		if err != nil {
			return err
		}
		if hold.State != domain.HoldStateActive {
			return nil
		}

		next := domain.HoldStateReleased
		if hold.Overdue(l.clock.Now()) {
			next = domain.HoldStateExpired
		}
		if err := l.holds.Transition(ctx, holdID, domain.HoldStateActive, next); err != nil {
			return err
		}
		hold.State = next
		changed = true
		if next == domain.HoldStateExpired {
			metrics.HoldsExpired(1)
		}
		return nil
	})
	metrics.LedgerOperation("release", err)
	if err != nil {
		return nil, err
	}

	if changed {
		l.logger.Info("hold released", slog.String("hold_id", holdID), slog.String("state", string(hold.State)))
	}
	return hold, nil
}

// Convert turns an ACTIVE hold into a CONFIRMED booking. The hold state change
// and the booking insert happen in one repository step.
func (l *Ledger) Convert(ctx context.Context, holdID, paymentRef string) (*domain.Booking, error) {
	current, err := l.holds.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err = l.WithRouteLock(ctx, current.RouteID, func(ctx context.Context) error {
		hold, err := l.holds.GetByID(ctx, holdID)
		if err != nil {
			return err
		}

		now := l.clock.Now()
		switch {
		case hold.State == domain.HoldStateExpired:
			return fmt.Errorf("hold %s: %w: %w", holdID, domain.ErrHoldExpired, domain.ErrHoldNotActive)
		case hold.Overdue(now):
			if err := l.holds.Transition(ctx, holdID, domain.HoldStateActive, domain.HoldStateExpired); err != nil {
				return err
			}
			metrics.HoldsExpired(1)
			return fmt.Errorf("hold %s expired at %s: %w: %w", holdID, hold.ExpiresAt.Format(time.RFC3339), domain.ErrHoldExpired, domain.ErrHoldNotActive)
		case hold.State != domain.HoldStateActive:
			return fmt.Errorf("hold %s is %s: %w", holdID, hold.State, domain.ErrHoldNotActive)
		}

		route, err := l.routes.GetByID(ctx, hold.RouteID)
		if err != nil {
			return err
		}

		now = now.UTC()
		booking = &domain.Booking{
			ID:          uuid.NewString(),
			HoldID:      hold.ID,
			RouteID:     hold.RouteID,
			RiderID:     hold.RiderID,
			SeatCount:   hold.SeatCount,
			TotalAmount: route.PricePerSeat.Mul(decimal.NewFromInt(int64(hold.SeatCount))),
			Status:      domain.BookingStatusConfirmed,
			PaymentRef:  paymentRef,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := l.holds.Convert(ctx, holdID, booking); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("hold %s: %w", holdID, domain.ErrHoldNotActive)
			}
			return err
		}
		return nil
	})
	metrics.LedgerOperation("convert", err)
	if err != nil {
		return nil, err
	}

	l.logger.Info("hold converted",
		slog.String("hold_id", holdID),
		slog.String("booking_id", booking.ID),
		slog.String("amount", booking.TotalAmount.StringFixed(2)))
	return booking, nil
}

// ExpireOverdue moves every overdue ACTIVE hold to EXPIRED and returns them.
// A failing route does not stop the sweep; its error is joined into the result.
func (l *Ledger) ExpireOverdue(ctx context.Context) ([]domain.SeatHold, error) {
	routeIDs, err := l.holds.RoutesWithActiveHolds(ctx)
	if err != nil {
		return nil, err
	}

	expired := make([]domain.SeatHold, 0)
	var errs []error
	for _, routeID := range routeIDs {
		err := l.WithRouteLock(ctx, routeID, func(ctx context.Context) error {
			holds, err := l.expireRouteLocked(ctx, routeID)
			expired = append(expired, holds...)
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire route %s: %w", routeID, err))
		}
	}

	sweepErr := errors.Join(errs...)
	metrics.LedgerOperation("expire_overdue", sweepErr)
	if len(expired) > 0 {
		l.logger.Info("expired overdue holds", slog.Int("count", len(expired)))
	}
	return expired, sweepErr
}

// AvailableSeats is Usage(routeID).Available().
func (l *Ledger) AvailableSeats(ctx context.Context, routeID string) (int, error) {
	usage, err := l.Usage(ctx, routeID)
	if err != nil {
		return 0, err
	}
	return usage.Available(), nil
}

func (l *Ledger) Usage(ctx context.Context, routeID string) (domain.SeatUsage, error) {
	var usage domain.SeatUsage
	err := l.WithRouteLock(ctx, routeID, func(ctx context.Context) error {
		route, err := l.routes.GetByID(ctx, routeID)
		if err != nil {
			return err
		}
		if _, err := l.expireRouteLocked(ctx, routeID); err != nil {
			return err
		}
		usage, err = l.usageLocked(ctx, route)
		return err
	})
	return usage, err
}

// WithRouteUsage runs fn under the route's lock with the route and its current
// usage, after overdue holds have been expired. fn may change the route record
// but must not call back into the Ledger.
func (l *Ledger) WithRouteUsage(ctx context.Context, routeID string, fn func(ctx context.Context, route *domain.Route, usage domain.SeatUsage) error) error {
	return l.WithRouteLock(ctx, routeID, func(ctx context.Context) error {
		route, err := l.routes.GetByID(ctx, routeID)
		if err != nil {
			return err
		}
		if _, err := l.expireRouteLocked(ctx, routeID); err != nil {
			return err
		}
		usage, err := l.usageLocked(ctx, route)
		if err != nil {
			return err
		}
		return fn(ctx, route, usage)
	})
}

// Lookup returns the hold, expiring it first when it is overdue.
func (l *Ledger) Lookup(ctx context.Context, holdID string) (*domain.SeatHold, error) {
	hold, err := l.holds.GetByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if !hold.Overdue(l.clock.Now()) {
		return hold, nil
	}

	err = l.WithRouteLock(ctx, hold.RouteID, func(ctx context.Context) error {
		_, err := l.expireRouteLocked(ctx, hold.RouteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l.holds.GetByID(ctx, holdID)
}

// ActiveHold returns the hold only if it is ACTIVE and not past its deadline.
func (l *Ledger) ActiveHold(ctx context.Context, holdID string) (*domain.SeatHold, error) {
	hold, err := l.Lookup(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.State != domain.HoldStateActive {
		return nil, fmt.Errorf("hold %s is %s: %w", holdID, hold.State, domain.ErrHoldNotActive)
	}
	return hold, nil
}

// CancelBooking moves a CONFIRMED booking to CANCELLED and gives its seats back
// to the route. Cancelling a CANCELLED booking returns it unchanged.
func (l *Ledger) CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	current, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err = l.WithRouteLock(ctx, current.RouteID, func(ctx context.Context) error {
		booking, err = l.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		switch booking.Status {
		case domain.BookingStatusCancelled:
			return nil
		case domain.BookingStatusConfirmed:
		default:
			return fmt.Errorf("booking %s is %s: %w", bookingID, booking.Status, domain.ErrInvalidTransition)
		}
		if err := l.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusConfirmed, domain.BookingStatusCancelled); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusCancelled
		booking.UpdatedAt = l.clock.Now().UTC()
		return nil
	})
	metrics.LedgerOperation("cancel_booking", err)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// expireRouteLocked must run under the route's lock.
func (l *Ledger) expireRouteLocked(ctx context.Context, routeID string) ([]domain.SeatHold, error) {
	active, err := l.holds.ListActiveByRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	expired := make([]domain.SeatHold, 0)
	for _, h := range active {
		if !h.Overdue(now) {
			continue
		}
		if err := l.holds.Transition(ctx, h.ID, domain.HoldStateActive, domain.HoldStateExpired); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return expired, err
		}
		h.State = domain.HoldStateExpired
		expired = append(expired, h)
	}
	metrics.HoldsExpired(len(expired))
	return expired, nil
}

// usageLocked must run under the route's lock, after expireRouteLocked.
func (l *Ledger) usageLocked(ctx context.Context, route *domain.Route) (domain.SeatUsage, error) {
	active, err := l.holds.ListActiveByRoute(ctx, route.ID)
	if err != nil {
		return domain.SeatUsage{}, err
	}
	confirmed, err := l.bookings.ConfirmedSeats(ctx, route.ID)
	if err != nil {
		return domain.SeatUsage{}, err
	}

	usage := domain.SeatUsage{Total: route.TotalSeats, Confirmed: confirmed}
	for _, h := range active {
		usage.Held += h.SeatCount
	}
	if usage.Held+usage.Confirmed > usage.Total {
		l.logger.Error("route capacity exceeded",
			slog.String("route_id", route.ID),
			slog.Int("total", usage.Total),
			slog.Int("held", usage.Held),
			slog.Int("confirmed", usage.Confirmed))
	}
	return usage, nil
}
