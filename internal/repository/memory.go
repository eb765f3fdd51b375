package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openride/seatreserve/internal/domain"
)

// memState backs every in-memory repository of one Store so that Convert can
// touch holds and bookings under a single lock.
type memState struct {
	mu       sync.RWMutex
	routes   map[string]domain.Route
	holds    map[string]domain.SeatHold
	bookings map[string]domain.Booking
	attempts map[string]domain.PaymentAttempt
	ratings  map[string]domain.Rating
	users    map[string]domain.User
}

// NewMemoryStore returns a Store that keeps everything in process memory.
func NewMemoryStore() Store {
	s := &memState{
		routes:   make(map[string]domain.Route),
		holds:    make(map[string]domain.SeatHold),
		bookings: make(map[string]domain.Booking),
		attempts: make(map[string]domain.PaymentAttempt),
		ratings:  make(map[string]domain.Rating),
		users:    make(map[string]domain.User),
	}
	return Store{
		Routes:   &MemoryRouteRepository{s: s},
		Holds:    &MemoryHoldRepository{s: s},
		Bookings: &MemoryBookingRepository{s: s},
		Payments: &MemoryPaymentRepository{s: s},
		Ratings:  &MemoryRatingRepository{s: s},
		Users:    &MemoryUserRepository{s: s},
	}
}

func normalizePlace(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

type MemoryRouteRepository struct{ s *memState }

func (r *MemoryRouteRepository) Create(_ context.Context, route *domain.Route) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.routes[route.ID]; ok {
		return fmt.Errorf("route %s: %w", route.ID, domain.ErrConflict)
	}
	r.s.routes[route.ID] = *route
	return nil
}

func (r *MemoryRouteRepository) GetByID(_ context.Context, id string) (*domain.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	route, ok := r.s.routes[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	return &route, nil
}

func (r *MemoryRouteRepository) ListByPair(_ context.Context, origin, destination string) ([]domain.Route, error) {
	origin, destination = normalizePlace(origin), normalizePlace(destination)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	routes := make([]domain.Route, 0)
	for _, route := range r.s.routes {
		if normalizePlace(route.Origin) == origin && normalizePlace(route.Destination) == destination {
			routes = append(routes, route)
		}
	}
	sortByDeparture(routes)
	return routes, nil
}

func (r *MemoryRouteRepository) ListByDriver(_ context.Context, driverID string) ([]domain.Route, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	routes := make([]domain.Route, 0)
	for _, route := range r.s.routes {
		if route.DriverID == driverID {
			routes = append(routes, route)
		}
	}
	sortByDeparture(routes)
	return routes, nil
}

func (r *MemoryRouteRepository) UpdateStatus(_ context.Context, id string, status domain.RouteStatus) (*domain.Route, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	route, ok := r.s.routes[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	route.Status = status
	route.UpdatedAt = time.Now().UTC()
	r.s.routes[id] = route
	return &route, nil
}

func (r *MemoryRouteRepository) Update(_ context.Context, route *domain.Route) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.routes[route.ID]
	if !ok {
		return fmt.Errorf("route %s: %w", route.ID, domain.ErrNotFound)
	}
	stored.DepartureTime = route.DepartureTime
	stored.TotalSeats = route.TotalSeats
	stored.PricePerSeat = route.PricePerSeat
	stored.UpdatedAt = route.UpdatedAt
	r.s.routes[route.ID] = stored
	return nil
}

func (r *MemoryRouteRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.routes[id]; !ok {
		return fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	for _, h := range r.s.holds {
		if h.RouteID == id {
			return fmt.Errorf("route %s has reservations: %w", id, domain.ErrConflict)
		}
	}
	delete(r.s.routes, id)
	return nil
}

func sortByDeparture(routes []domain.Route) {
	sort.Slice(routes, func(i, j int) bool {
		if !routes[i].DepartureTime.Equal(routes[j].DepartureTime) {
			return routes[i].DepartureTime.Before(routes[j].DepartureTime)
		}
		return routes[i].ID < routes[j].ID
	})
}

type MemoryHoldRepository struct{ s *memState }

func (r *MemoryHoldRepository) Create(_ context.Context, hold *domain.SeatHold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.holds[hold.ID]; ok {
		return fmt.Errorf("hold %s: %w", hold.ID, domain.ErrConflict)
	}
	r.s.holds[hold.ID] = *hold
	return nil
}

func (r *MemoryHoldRepository) GetByID(_ context.Context, id string) (*domain.SeatHold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	hold, ok := r.s.holds[id]
	if !ok {
		return nil, fmt.Errorf("hold %s: %w", id, domain.ErrNotFound)
	}
	return &hold, nil
}

func (r *MemoryHoldRepository) ListActiveByRoute(_ context.Context, routeID string) ([]domain.SeatHold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	holds := make([]domain.SeatHold, 0)
	for _, h := range r.s.holds {
		if h.RouteID == routeID && h.State == domain.HoldStateActive {
			holds = append(holds, h)
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].ExpiresAt.Before(holds[j].ExpiresAt) })
	return holds, nil
}

func (r *MemoryHoldRepository) RoutesWithActiveHolds(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, h := range r.s.holds {
		if h.State != domain.HoldStateActive {
			continue
		}
		if _, ok := seen[h.RouteID]; !ok {
			seen[h.RouteID] = struct{}{}
			ids = append(ids, h.RouteID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryHoldRepository) Transition(_ context.Context, id string, from, to domain.HoldState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	hold, ok := r.s.holds[id]
	if !ok {
		return fmt.Errorf("hold %s: %w", id, domain.ErrNotFound)
	}
	if hold.State != from {
		return fmt.Errorf("hold %s is %s, not %s: %w", id, hold.State, from, domain.ErrConflict)
	}
	hold.State = to
	r.s.holds[id] = hold
	return nil
}

func (r *MemoryHoldRepository) Convert(_ context.Context, holdID string, booking *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	hold, ok := r.s.holds[holdID]
	if !ok {
		return fmt.Errorf("hold %s: %w", holdID, domain.ErrNotFound)
	}
	if hold.State != domain.HoldStateActive {
		return fmt.Errorf("hold %s is %s: %w", holdID, hold.State, domain.ErrConflict)
	}
	if _, ok := r.s.bookings[booking.ID]; ok {
		return fmt.Errorf("booking %s: %w", booking.ID, domain.ErrConflict)
	}
	hold.State = domain.HoldStateConverted
	r.s.holds[holdID] = hold
	r.s.bookings[booking.ID] = *booking
	return nil
}

type MemoryBookingRepository struct{ s *memState }

func (r *MemoryBookingRepository) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return &b, nil
}

func (r *MemoryBookingRepository) GetByHoldID(_ context.Context, holdID string) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bookings {
		if b.HoldID == holdID {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("booking for hold %s: %w", holdID, domain.ErrNotFound)
}

func (r *MemoryBookingRepository) ListByRider(_ context.Context, riderID string) ([]domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	bookings := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if b.RiderID == riderID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.After(bookings[j].CreatedAt) })
	return bookings, nil
}

func (r *MemoryBookingRepository) ConfirmedSeats(_ context.Context, routeID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := 0
	for _, b := range r.s.bookings {
		if b.RouteID == routeID && b.Status == domain.BookingStatusConfirmed {
			total += b.SeatCount
		}
	}
	return total, nil
}

func (r *MemoryBookingRepository) UpdateStatus(_ context.Context, id string, from, to domain.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if b.Status != from {
		return fmt.Errorf("booking %s is %s, not %s: %w", id, b.Status, from, domain.ErrConflict)
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	r.s.bookings[id] = b
	return nil
}

type MemoryPaymentRepository struct{ s *memState }

func (r *MemoryPaymentRepository) Create(_ context.Context, attempt *domain.PaymentAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.attempts {
		if a.ID == attempt.ID || a.ProviderRef == attempt.ProviderRef {
			return fmt.Errorf("payment attempt %s: %w", attempt.ProviderRef, domain.ErrConflict)
		}
	}
	r.s.attempts[attempt.ID] = *attempt
	return nil
}

func (r *MemoryPaymentRepository) GetByProviderRef(_ context.Context, providerRef string) (*domain.PaymentAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.attempts {
		if a.ProviderRef == providerRef {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("payment attempt %s: %w", providerRef, domain.ErrNotFound)
}

func (r *MemoryPaymentRepository) SupersedeLive(_ context.Context, holdID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, a := range r.s.attempts {
		if a.HoldID == holdID && a.State == domain.PaymentStateInitiated && !a.Superseded {
			a.State = domain.PaymentStateCancelled
			a.Superseded = true
			a.UpdatedAt = time.Now().UTC()
			r.s.attempts[id] = a
			n++
		}
	}
	return n, nil
}

func (r *MemoryPaymentRepository) UpdateState(_ context.Context, id string, from, to domain.PaymentState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attempts[id]
	if !ok {
		return fmt.Errorf("payment attempt %s: %w", id, domain.ErrNotFound)
	}
	if a.State != from {
		return fmt.Errorf("payment attempt %s is %s, not %s: %w", id, a.State, from, domain.ErrConflict)
	}
	a.State = to
	a.UpdatedAt = time.Now().UTC()
	r.s.attempts[id] = a
	return nil
}

func (r *MemoryPaymentRepository) ListInitiated(_ context.Context) ([]domain.PaymentAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	attempts := make([]domain.PaymentAttempt, 0)
	for _, a := range r.s.attempts {
		if a.State == domain.PaymentStateInitiated {
			attempts = append(attempts, a)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].CreatedAt.Before(attempts[j].CreatedAt) })
	return attempts, nil
}

type MemoryRatingRepository struct{ s *memState }

func (r *MemoryRatingRepository) Create(_ context.Context, rating *domain.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.ratings {
		if existing.BookingID == rating.BookingID {
			return fmt.Errorf("rating for booking %s: %w", rating.BookingID, domain.ErrConflict)
		}
	}
	r.s.ratings[rating.ID] = *rating
	return nil
}

func (r *MemoryRatingRepository) GetByBooking(_ context.Context, bookingID string) (*domain.Rating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rating := range r.s.ratings {
		if rating.BookingID == bookingID {
			return &rating, nil
		}
	}
	return nil, fmt.Errorf("rating for booking %s: %w", bookingID, domain.ErrNotFound)
}

func (r *MemoryRatingRepository) ListByDriver(_ context.Context, driverID string) ([]domain.Rating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ratings := make([]domain.Rating, 0)
	for _, rating := range r.s.ratings {
		if rating.DriverID == driverID {
			ratings = append(ratings, rating)
		}
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].CreatedAt.After(ratings[j].CreatedAt) })
	return ratings, nil
}

type MemoryUserRepository struct{ s *memState }

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, u := range r.s.users {
		if strings.ToLower(u.Email) == email {
			return fmt.Errorf("user %s: %w", user.Email, domain.ErrConflict)
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.ToLower(u.Email) == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

var (
	_ RouteRepository   = (*MemoryRouteRepository)(nil)
	_ HoldRepository    = (*MemoryHoldRepository)(nil)
	_ BookingRepository = (*MemoryBookingRepository)(nil)
	_ PaymentRepository = (*MemoryPaymentRepository)(nil)
	_ RatingRepository  = (*MemoryRatingRepository)(nil)
	_ UserRepository    = (*MemoryUserRepository)(nil)
)
