package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openride/seatreserve/internal/domain"
)

const routeColumns = `id, driver_id, origin, destination, departure_time, total_seats, price_per_seat, status, created_at, updated_at`

type PGRouteRepository struct {
	db *sql.DB
}

func NewRouteRepository(db *sql.DB) *PGRouteRepository {
	return &PGRouteRepository{db: db}
}

func (r *PGRouteRepository) Create(ctx context.Context, route *domain.Route) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO routes (`+routeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		route.ID, route.DriverID, route.Origin, route.Destination, route.DepartureTime,
		route.TotalSeats, route.PricePerSeat, route.Status, route.CreatedAt, route.UpdatedAt)
	return insertErr(err, "route", route.ID)
}

func (r *PGRouteRepository) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id=$1`, id)
	route, err := scanRoute(row)
	if err != nil {
		return nil, notFound(err, "route", id)
	}
	return route, nil
}

func (r *PGRouteRepository) ListByPair(ctx context.Context, origin, destination string) ([]domain.Route, error) {
	return r.list(ctx, `SELECT `+routeColumns+` FROM routes
		WHERE lower(origin)=lower(trim($1)) AND lower(destination)=lower(trim($2))
		ORDER BY departure_time, id`, origin, destination)
}

func (r *PGRouteRepository) ListByDriver(ctx context.Context, driverID string) ([]domain.Route, error) {
	return r.list(ctx, `SELECT `+routeColumns+` FROM routes WHERE driver_id=$1 ORDER BY departure_time, id`, driverID)
}

func (r *PGRouteRepository) UpdateStatus(ctx context.Context, id string, status domain.RouteStatus) (*domain.Route, error) {
	row := r.db.QueryRowContext(ctx, `UPDATE routes SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+routeColumns, status, id)
	route, err := scanRoute(row)
	if err != nil {
		return nil, notFound(err, "route", id)
	}
	return route, nil
}

func (r *PGRouteRepository) Update(ctx context.Context, route *domain.Route) error {
	res, err := r.db.ExecContext(ctx, `UPDATE routes SET departure_time=$1, total_seats=$2, price_per_seat=$3, updated_at=$4 WHERE id=$5`,
		route.DepartureTime, route.TotalSeats, route.PricePerSeat, route.UpdatedAt, route.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("route %s: %w", route.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PGRouteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id=$1
		AND NOT EXISTS (SELECT 1 FROM seat_holds WHERE route_id=$1)`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("route %s has reservations: %w", id, domain.ErrConflict)
}

func (r *PGRouteRepository) list(ctx context.Context, query string, args ...any) ([]domain.Route, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := make([]domain.Route, 0)
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *route)
	}
	return routes, rows.Err()
}

func scanRoute(row rowScanner) (*domain.Route, error) {
	var route domain.Route
	if err := row.Scan(&route.ID, &route.DriverID, &route.Origin, &route.Destination, &route.DepartureTime,
		&route.TotalSeats, &route.PricePerSeat, &route.Status, &route.CreatedAt, &route.UpdatedAt); err != nil {
		return nil, err
	}
	return &route, nil
}

var _ RouteRepository = (*PGRouteRepository)(nil)
