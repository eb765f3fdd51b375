package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openride/seatreserve/internal/domain"
)

func seedRoute(t *testing.T, store Store, id, origin, destination string, departure time.Time) {
	t.Helper()
	require.NoError(t, store.Routes.Create(context.Background(), &domain.Route{
		ID: id, DriverID: "d1", Origin: origin, Destination: destination,
		DepartureTime: departure, TotalSeats: 3, PricePerSeat: decimal.NewFromInt(1000),
		Status: domain.RouteStatusActive,
	}))
}

func TestMemoryRoutes_ListByPairIsCaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	seedRoute(t, store, "r2", "Lagos", "Ibadan", fixedNow.Add(time.Hour))
	seedRoute(t, store, "r1", "lagos ", "IBADAN", fixedNow)
	seedRoute(t, store, "r3", "Lagos", "Abuja", fixedNow)

	routes, err := store.Routes.ListByPair(context.Background(), "LAGOS", "ibadan")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "r1", routes[0].ID)
	assert.Equal(t, "r2", routes[1].ID)
}

func TestMemoryHolds_ConvertIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Holds.Create(ctx, &domain.SeatHold{ID: "h1", RouteID: "r1", SeatCount: 2, State: domain.HoldStateActive}))

	b := &domain.Booking{ID: "b1", HoldID: "h1", RouteID: "r1", SeatCount: 2, Status: domain.BookingStatusConfirmed}
	require.NoError(t, store.Holds.Convert(ctx, "h1", b))

	hold, err := store.Holds.GetByID(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStateConverted, hold.State)

	seats, err := store.Bookings.ConfirmedSeats(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, seats)

	err = store.Holds.Convert(ctx, "h1", &domain.Booking{ID: "b2", HoldID: "h1", RouteID: "r1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMemoryHolds_TransitionAndActiveRoutes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Holds.Create(ctx, &domain.SeatHold{ID: "h1", RouteID: "r2", State: domain.HoldStateActive}))
	require.NoError(t, store.Holds.Create(ctx, &domain.SeatHold{ID: "h2", RouteID: "r1", State: domain.HoldStateActive}))

	ids, err := store.Holds.RoutesWithActiveHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids)

	require.NoError(t, store.Holds.Transition(ctx, "h1", domain.HoldStateActive, domain.HoldStateReleased))
	assert.ErrorIs(t, store.Holds.Transition(ctx, "h1", domain.HoldStateActive, domain.HoldStateExpired), domain.ErrConflict)
	assert.ErrorIs(t, store.Holds.Transition(ctx, "nope", domain.HoldStateActive, domain.HoldStateExpired), domain.ErrNotFound)

	ids, err = store.Holds.RoutesWithActiveHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)
}

func TestMemoryPayments_SupersedeLive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Payments.Create(ctx, &domain.PaymentAttempt{ID: "p1", HoldID: "h1", ProviderRef: "ref1", State: domain.PaymentStateInitiated}))
	require.NoError(t, store.Payments.Create(ctx, &domain.PaymentAttempt{ID: "p2", HoldID: "h1", ProviderRef: "ref2", State: domain.PaymentStateFailed}))
	assert.ErrorIs(t, store.Payments.Create(ctx, &domain.PaymentAttempt{ID: "p3", ProviderRef: "ref1"}), domain.ErrConflict)

	n, err := store.Payments.SupersedeLive(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, err := store.Payments.GetByProviderRef(ctx, "ref1")
	require.NoError(t, err)
	assert.True(t, a.Superseded)
	assert.Equal(t, domain.PaymentStateCancelled, a.State)

	live, err := store.Payments.ListInitiated(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestMemoryUsers_EmailIsUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Users.Create(ctx, &domain.User{ID: "u1", Email: "Ada@Example.com"}))
	assert.ErrorIs(t, store.Users.Create(ctx, &domain.User{ID: "u2", Email: "ada@example.com"}), domain.ErrConflict)

	u, err := store.Users.GetByEmail(ctx, " ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestMemoryRoutes_DeleteRefusesHeldRoutes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedRoute(t, store, "r1", "Lagos", "Ibadan", fixedNow)
	seedRoute(t, store, "r2", "Lagos", "Ibadan", fixedNow)
	require.NoError(t, store.Holds.Create(ctx, &domain.SeatHold{ID: "h1", RouteID: "r2", SeatCount: 1, State: domain.HoldStateReleased}))

	require.NoError(t, store.Routes.Delete(ctx, "r1"))
	_, err := store.Routes.GetByID(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Routes.Delete(ctx, "r2"), domain.ErrConflict)
	assert.ErrorIs(t, store.Routes.Delete(ctx, "r1"), domain.ErrNotFound)
}

func TestMemoryBookings_GetByHoldID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Holds.Create(ctx, &domain.SeatHold{ID: "h1", RouteID: "r1", SeatCount: 2, State: domain.HoldStateActive}))
	require.NoError(t, store.Holds.Convert(ctx, "h1", &domain.Booking{ID: "b1", HoldID: "h1", RouteID: "r1", SeatCount: 2, PaymentRef: "ref-1"}))

	b, err := store.Bookings.GetByHoldID(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)

	_, err = store.Bookings.GetByHoldID(ctx, "h2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRatings_OnePerBooking(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	first := &domain.Rating{ID: "rt1", BookingID: "b1", DriverID: "d1", Score: 4, CreatedAt: fixedNow}
	require.NoError(t, store.Ratings.Create(ctx, first))
	assert.ErrorIs(t, store.Ratings.Create(ctx, &domain.Rating{ID: "rt2", BookingID: "b1", DriverID: "d1", Score: 1}), domain.ErrConflict)

	got, err := store.Ratings.GetByBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Score)

	ratings, err := store.Ratings.ListByDriver(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, ratings, 1)
}
