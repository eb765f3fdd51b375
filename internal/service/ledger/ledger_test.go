package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/repository"
)

var start = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type fixture struct {
	ledger *Ledger
	store  repository.Store
	clock  *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	fc := clock.Fake(start)
	l := New(store, WithClock(fc), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return &fixture{ledger: l, store: store, clock: fc}
}

func (f *fixture) route(t *testing.T, id string, seats int, status domain.RouteStatus) {
	t.Helper()
	require.NoError(t, f.store.Routes.Create(context.Background(), &domain.Route{
		ID:            id,
		DriverID:      "driver-1",
		Origin:        "Lagos",
		Destination:   "Ibadan",
		DepartureTime: start.Add(24 * time.Hour),
		TotalSeats:    seats,
		PricePerSeat:  decimal.NewFromInt(2500),
		Status:        status,
	}))
}

func (f *fixture) available(t *testing.T, routeID string) int {
	t.Helper()
	n, err := f.ledger.AvailableSeats(context.Background(), routeID)
	require.NoError(t, err)
	return n
}

func TestLedger_ThreeSeatScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 3, domain.RouteStatusActive)

	a, err := f.ledger.Hold(ctx, "r1", "rider-a", 2, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, f.available(t, "r1"))

	_, err = f.ledger.Hold(ctx, "r1", "rider-b", 2, 10*time.Minute)
	assert.ErrorIs(t, err, domain.ErrInsufficientSeats)

	booking, err := f.ledger.Convert(ctx, a.ID, "txn-a")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.True(t, decimal.NewFromInt(5000).Equal(booking.TotalAmount))
	assert.Equal(t, 1, f.available(t, "r1"))

	_, err = f.ledger.Hold(ctx, "r1", "rider-c", 1, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, "r1"))
}

func TestLedger_ConcurrentHoldsNeverOversubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 4, domain.RouteStatusActive)

	const riders = 12
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < riders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Hold(ctx, "r1", "rider", 1, time.Minute)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientSeats):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, ok)
	assert.Equal(t, riders-4, rejected)

	usage, err := f.ledger.Usage(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 4, usage.Held)
	assert.LessOrEqual(t, usage.Held+usage.Confirmed, usage.Total)
}

func TestLedger_ZeroTTLExpiresOnSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 2, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 2, 0)
	require.NoError(t, err)

	expired, err := f.ledger.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, hold.ID, expired[0].ID)
	assert.Equal(t, domain.HoldStateExpired, expired[0].State)
	assert.Equal(t, 2, f.available(t, "r1"))

	expired, err = f.ledger.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestLedger_ConvertAfterDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 3, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 2, 5*time.Second)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	_, err = f.ledger.Convert(ctx, hold.ID, "txn")
	assert.ErrorIs(t, err, domain.ErrHoldExpired)
	assert.ErrorIs(t, err, domain.ErrHoldNotActive)

	stored, err := f.store.Holds.GetByID(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateExpired, stored.State)

	bookings, err := f.store.Bookings.ListByRider(ctx, "rider")
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.Equal(t, 3, f.available(t, "r1"))

	_, err = f.ledger.Convert(ctx, hold.ID, "txn")
	assert.ErrorIs(t, err, domain.ErrHoldExpired)
	assert.ErrorIs(t, err, domain.ErrHoldNotActive)
}

func TestLedger_DeadlineIsInclusive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 1, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 1, time.Minute)
	require.NoError(t, err)

	f.clock.Advance(time.Minute - time.Nanosecond)
	_, err = f.ledger.ActiveHold(ctx, hold.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Nanosecond)
	_, err = f.ledger.ActiveHold(ctx, hold.ID)
	assert.ErrorIs(t, err, domain.ErrHoldNotActive)
}

func TestLedger_ConvertRequiresActiveHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 3, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 1, time.Minute)
	require.NoError(t, err)
	_, err = f.ledger.Release(ctx, hold.ID)
	require.NoError(t, err)

	_, err = f.ledger.Convert(ctx, hold.ID, "txn")
	assert.ErrorIs(t, err, domain.ErrHoldNotActive)

	other, err := f.ledger.Hold(ctx, "r1", "rider", 1, time.Minute)
	require.NoError(t, err)
	_, err = f.ledger.Convert(ctx, other.ID, "txn")
	require.NoError(t, err)
	_, err = f.ledger.Convert(ctx, other.ID, "txn")
	assert.ErrorIs(t, err, domain.ErrHoldNotActive)
}

func TestLedger_ReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 2, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, "r1"))

	released, err := f.ledger.Release(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateReleased, released.State)
	assert.Equal(t, 2, f.available(t, "r1"))

	again, err := f.ledger.Release(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateReleased, again.State)

	_, err = f.ledger.Release(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_ReleaseOverdueHoldRecordsExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 2, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 1, time.Second)
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	released, err := f.ledger.Release(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateExpired, released.State)
}

func TestLedger_HoldValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 2, domain.RouteStatusActive)
	f.route(t, "r2", 2, domain.RouteStatusInactive)

	_, err := f.ledger.Hold(ctx, "r1", "rider", 0, time.Minute)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.ledger.Hold(ctx, "r1", "rider", 1, -time.Second)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.ledger.Hold(ctx, "missing", "rider", 1, time.Minute)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.ledger.Hold(ctx, "r2", "rider", 1, time.Minute)
	assert.ErrorIs(t, err, domain.ErrRouteNotBookable)
}

func TestLedger_CancelBookingReturnsSeats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 2, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 2, time.Minute)
	require.NoError(t, err)
	booking, err := f.ledger.Convert(ctx, hold.ID, "txn")
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, "r1"))

	cancelled, err := f.ledger.CancelBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 2, f.available(t, "r1"))

	again, err := f.ledger.CancelBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, again.Status)
}

func TestLedger_LookupExpiresLazily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 2, domain.RouteStatusActive)

	hold, err := f.ledger.Hold(ctx, "r1", "rider", 1, time.Minute)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)

	got, err := f.ledger.Lookup(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateExpired, got.State)
}

func TestLedger_WithRouteUsageExpiresFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.route(t, "r1", 4, domain.RouteStatusActive)

	_, err := f.ledger.Hold(ctx, "r1", "rider-a", 1, 5*time.Second)
	require.NoError(t, err)
	_, err = f.ledger.Hold(ctx, "r1", "rider-b", 2, time.Minute)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	err = f.ledger.WithRouteUsage(ctx, "r1", func(_ context.Context, route *domain.Route, usage domain.SeatUsage) error {
		assert.Equal(t, "r1", route.ID)
		assert.Equal(t, domain.SeatUsage{Total: 4, Held: 2}, usage)
		return nil
	})
	require.NoError(t, err)

	err = f.ledger.WithRouteUsage(ctx, "missing", func(context.Context, *domain.Route, domain.SeatUsage) error {
		t.Fatal("called for a missing route")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
