package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openride/seatreserve/internal/clock"
	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/repository"
)

type RouteUseCase interface {
	Create(ctx context.Context, input CreateRouteInput) (*domain.Route, error)
	Search(ctx context.Context, q Query) ([]domain.Route, error)
	SetStatus(ctx context.Context, routeID, driverID string, status domain.RouteStatus) (*domain.Route, error)
	Update(ctx context.Context, routeID, driverID string, input UpdateRouteInput) (*domain.Route, error)
	Delete(ctx context.Context, routeID, driverID string) error
	AvailableSeats(ctx context.Context, routeID string) (int, error)
	Get(ctx context.Context, routeID string) (*domain.Route, error)
	ListByDriver(ctx context.Context, driverID string) ([]domain.Route, error)
}

// RouteCache holds route lists per (origin, destination). GetRoutes returns
// nil without error on a miss.
type RouteCache interface {
	GetRoutes(ctx context.Context, origin, destination string) ([]domain.Route, error)
	SetRoutes(ctx context.Context, origin, destination string, routes []domain.Route) error
	Invalidate(ctx context.Context, origin, destination string) error
}

// Seats is the ledger's side of the catalog: capacity reads and the route lock
// that status and capacity changes must share with hold creation.
type Seats interface {
	AvailableSeats(ctx context.Context, routeID string) (int, error)
	WithRouteLock(ctx context.Context, routeID string, fn func(ctx context.Context) error) error
	WithRouteUsage(ctx context.Context, routeID string, fn func(ctx context.Context, route *domain.Route, usage domain.SeatUsage) error) error
}

type CreateRouteInput struct {
	DriverID      string          `json:"-"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	DepartureTime time.Time       `json:"departure_time"`
	TotalSeats    int             `json:"total_seats"`
	PricePerSeat  decimal.Decimal `json:"price_per_seat"`
}

// UpdateRouteInput changes only the fields that are set.
type UpdateRouteInput struct {
	DepartureTime *time.Time       `json:"departure_time"`
	TotalSeats    *int             `json:"total_seats"`
	PricePerSeat  *decimal.Decimal `json:"price_per_seat"`
}

func (in UpdateRouteInput) empty() bool {
	return in.DepartureTime == nil && in.TotalSeats == nil && in.PricePerSeat == nil
}

// Query matches origin and destination case-insensitively. Zero From or To
// leaves that side of the departure window open.
type Query struct {
	Origin      string
	Destination string
	From        time.Time
	To          time.Time
}

type Service struct {
	routes repository.RouteRepository
	seats  Seats
	cache  RouteCache
	clock  clock.Clock
	logger *slog.Logger
}

// NewService accepts a nil cache.
func NewService(routes repository.RouteRepository, seats Seats, cache RouteCache, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{routes: routes, seats: seats, cache: cache, clock: clk, logger: logger}
}

func (s *Service) Create(ctx context.Context, input CreateRouteInput) (*domain.Route, error) {
	origin, destination := strings.TrimSpace(input.Origin), strings.TrimSpace(input.Destination)
	switch {
	case origin == "" || destination == "":
		return nil, fmt.Errorf("origin and destination are required: %w", domain.ErrValidation)
	case input.TotalSeats <= 0:
		return nil, fmt.Errorf("total seats must be positive: %w", domain.ErrValidation)
	case input.PricePerSeat.IsNegative():
		return nil, fmt.Errorf("price per seat must not be negative: %w", domain.ErrValidation)
	case input.DepartureTime.IsZero():
		return nil, fmt.Errorf("departure time is required: %w", domain.ErrValidation)
	}

	now := s.clock.Now().UTC()
	route := &domain.Route{
		ID:            uuid.NewString(),
		DriverID:      input.DriverID,
		Origin:        origin,
		Destination:   destination,
		DepartureTime: input.DepartureTime.UTC(),
		TotalSeats:    input.TotalSeats,
		PricePerSeat:  input.PricePerSeat,
		Status:        domain.RouteStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.routes.Create(ctx, route); err != nil {
		return nil, err
	}
	s.invalidate(ctx, route)

	s.logger.Info("route created", slog.String("route_id", route.ID), slog.String("driver_id", route.DriverID))
	return route, nil
}

// Search orders by departure time, then lower price, then id.
func (s *Service) Search(ctx context.Context, q Query) ([]domain.Route, error) {
	if strings.TrimSpace(q.Origin) == "" || strings.TrimSpace(q.Destination) == "" {
		return nil, fmt.Errorf("origin and destination are required: %w", domain.ErrValidation)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, fmt.Errorf("window ends before it starts: %w", domain.ErrValidation)
	}

	routes, err := s.byPair(ctx, q.Origin, q.Destination)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Route, 0, len(routes))
	for _, r := range routes {
		if !q.From.IsZero() && r.DepartureTime.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && r.DepartureTime.After(q.To) {
			continue
		}
		matched = append(matched, r)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.DepartureTime.Equal(b.DepartureTime) {
			return a.DepartureTime.Before(b.DepartureTime)
		}
		if cmp := a.PricePerSeat.Cmp(b.PricePerSeat); cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})
	return matched, nil
}

func (s *Service) byPair(ctx context.Context, origin, destination string) ([]domain.Route, error) {
	origin, destination = cacheKeyPart(origin), cacheKeyPart(destination)
	if s.cache != nil {
		cached, err := s.cache.GetRoutes(ctx, origin, destination)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			s.logger.Warn("route cache read failed", slog.Any("error", err))
		}
	}

	routes, err := s.routes.ListByPair(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRoutes(ctx, origin, destination, routes); err != nil {
			s.logger.Warn("route cache write failed", slog.Any("error", err))
		}
	}
	return routes, nil
}

// SetStatus changes a route's status. An empty driverID skips the ownership
// check for system callers.
func (s *Service) SetStatus(ctx context.Context, routeID, driverID string, status domain.RouteStatus) (*domain.Route, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown route status %q: %w", status, domain.ErrValidation)
	}

	var updated *domain.Route
	err := s.seats.WithRouteLock(ctx, routeID, func(ctx context.Context) error {
		route, err := s.routes.GetByID(ctx, routeID)
		if err != nil {
			return err
		}
		if driverID != "" && route.DriverID != driverID {
			return fmt.Errorf("route %s belongs to another driver: %w", routeID, domain.ErrForbidden)
		}
		if route.Status == status {
			updated = route
			return nil
		}
		if route.Status == domain.RouteStatusCompleted && status == domain.RouteStatusActive {
			return fmt.Errorf("route %s is completed: %w", routeID, domain.ErrInvalidTransition)
		}

		updated, err = s.routes.UpdateStatus(ctx, routeID, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated)
	s.logger.Info("route status changed", slog.String("route_id", routeID), slog.String("status", string(updated.Status)))
	return updated, nil
}

// Update edits a route's departure, capacity or price. Capacity never drops
// below the seats already held or confirmed, and the price is frozen while
// holds are open since their payments were quoted at it.
func (s *Service) Update(ctx context.Context, routeID, driverID string, input UpdateRouteInput) (*domain.Route, error) {
	if input.empty() {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrValidation)
	}

	var updated *domain.Route
	err := s.seats.WithRouteUsage(ctx, routeID, func(ctx context.Context, route *domain.Route, usage domain.SeatUsage) error {
		if driverID != "" && route.DriverID != driverID {
			return fmt.Errorf("route %s belongs to another driver: %w", routeID, domain.ErrForbidden)
		}
		if route.Status == domain.RouteStatusCompleted {
			return fmt.Errorf("route %s is completed: %w", routeID, domain.ErrInvalidTransition)
		}

		next := *route
		if input.DepartureTime != nil {
			if input.DepartureTime.IsZero() {
				return fmt.Errorf("departure time is required: %w", domain.ErrValidation)
			}
			next.DepartureTime = input.DepartureTime.UTC()
		}
		if input.TotalSeats != nil {
			seats := *input.TotalSeats
			if seats <= 0 {
				return fmt.Errorf("total seats must be positive: %w", domain.ErrValidation)
			}
			if taken := usage.Held + usage.Confirmed; seats < taken {
				return fmt.Errorf("route %s has %d seats held or booked, cannot shrink to %d: %w",
					routeID, taken, seats, domain.ErrInsufficientSeats)
			}
			next.TotalSeats = seats
		}
		if input.PricePerSeat != nil {
			price := *input.PricePerSeat
			if price.IsNegative() {
				return fmt.Errorf("price per seat must not be negative: %w", domain.ErrValidation)
			}
			if !price.Equal(route.PricePerSeat) && usage.Held > 0 {
				return fmt.Errorf("route %s has %d seats on hold at the current price: %w",
					routeID, usage.Held, domain.ErrInvalidTransition)
			}
			next.PricePerSeat = price
		}
		next.UpdatedAt = s.clock.Now().UTC()

		if err := s.routes.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated)
	s.logger.Info("route updated",
		slog.String("route_id", routeID),
		slog.Int("total_seats", updated.TotalSeats),
		slog.String("price_per_seat", updated.PricePerSeat.StringFixed(2)))
	return updated, nil
}

// Delete removes a route nobody has ever held seats on. Routes with
// reservation history are deactivated through SetStatus instead.
func (s *Service) Delete(ctx context.Context, routeID, driverID string) error {
	var deleted *domain.Route
	err := s.seats.WithRouteUsage(ctx, routeID, func(ctx context.Context, route *domain.Route, usage domain.SeatUsage) error {
		if driverID != "" && route.DriverID != driverID {
			return fmt.Errorf("route %s belongs to another driver: %w", routeID, domain.ErrForbidden)
		}
		if usage.Held+usage.Confirmed > 0 {
			return fmt.Errorf("route %s has seats held or booked: %w", routeID, domain.ErrInvalidTransition)
		}
		if err := s.routes.Delete(ctx, routeID); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("route %s has reservation history, deactivate it instead: %w", routeID, domain.ErrInvalidTransition)
			}
			return err
		}
		deleted = route
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, deleted)
	s.logger.Info("route deleted", slog.String("route_id", routeID))
	return nil
}

func (s *Service) AvailableSeats(ctx context.Context, routeID string) (int, error) {
	return s.seats.AvailableSeats(ctx, routeID)
}

func (s *Service) Get(ctx context.Context, routeID string) (*domain.Route, error) {
	return s.routes.GetByID(ctx, routeID)
}

func (s *Service) ListByDriver(ctx context.Context, driverID string) ([]domain.Route, error) {
	return s.routes.ListByDriver(ctx, driverID)
}

func (s *Service) invalidate(ctx context.Context, route *domain.Route) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cacheKeyPart(route.Origin), cacheKeyPart(route.Destination)); err != nil {
		s.logger.Warn("route cache invalidation failed", slog.String("route_id", route.ID), slog.Any("error", err))
	}
}

func cacheKeyPart(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}

var _ RouteUseCase = (*Service)(nil)
