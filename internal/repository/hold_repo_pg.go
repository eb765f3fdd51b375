package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openride/seatreserve/internal/domain"
)

const holdColumns = `id, route_id, rider_id, seat_count, state, created_at, expires_at`

type PGHoldRepository struct {
	db *sql.DB
}

func NewHoldRepository(db *sql.DB) *PGHoldRepository {
	return &PGHoldRepository{db: db}
}

func (r *PGHoldRepository) Create(ctx context.Context, hold *domain.SeatHold) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO seat_holds (`+holdColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		hold.ID, hold.RouteID, hold.RiderID, hold.SeatCount, hold.State, hold.CreatedAt, hold.ExpiresAt)
	return insertErr(err, "hold", hold.ID)
}

func (r *PGHoldRepository) GetByID(ctx context.Context, id string) (*domain.SeatHold, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM seat_holds WHERE id=$1`, id)
	hold, err := scanHold(row)
	if err != nil {
		return nil, notFound(err, "hold", id)
	}
	return hold, nil
}

func (r *PGHoldRepository) ListActiveByRoute(ctx context.Context, routeID string) ([]domain.SeatHold, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+holdColumns+` FROM seat_holds WHERE route_id=$1 AND state=$2 ORDER BY expires_at`,
		routeID, domain.HoldStateActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make([]domain.SeatHold, 0)
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *hold)
	}
	return holds, rows.Err()
}

func (r *PGHoldRepository) RoutesWithActiveHolds(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT route_id FROM seat_holds WHERE state=$1 ORDER BY route_id`, domain.HoldStateActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PGHoldRepository) Transition(ctx context.Context, id string, from, to domain.HoldState) error {
	res, err := r.db.ExecContext(ctx, `UPDATE seat_holds SET state=$1 WHERE id=$2 AND state=$3`, to, id, from)
	if err != nil {
		return err
	}
	return expectOne(res, "hold", id)
}

func (r *PGHoldRepository) Convert(ctx context.Context, holdID string, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE seat_holds SET state=$1 WHERE id=$2 AND state=$3`,
		domain.HoldStateConverted, holdID, domain.HoldStateActive)
	if err != nil {
		return err
	}
	if err := expectOne(res, "hold", holdID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		booking.ID, booking.HoldID, booking.RouteID, booking.RiderID, booking.SeatCount, booking.TotalAmount,
		booking.Status, booking.PaymentRef, booking.CreatedAt, booking.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	return tx.Commit()
}

func scanHold(row rowScanner) (*domain.SeatHold, error) {
	var h domain.SeatHold
	if err := row.Scan(&h.ID, &h.RouteID, &h.RiderID, &h.SeatCount, &h.State, &h.CreatedAt, &h.ExpiresAt); err != nil {
		return nil, err
	}
	return &h, nil
}

var _ HoldRepository = (*PGHoldRepository)(nil)
