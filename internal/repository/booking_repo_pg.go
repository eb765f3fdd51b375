package repository

import (
	"context"
	"database/sql"

	"github.com/openride/seatreserve/internal/domain"
)

const bookingColumns = `id, hold_id, route_id, rider_id, seat_count, total_amount, status, payment_ref, created_at, updated_at`

type PGBookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

func (r *PGBookingRepository) GetByHoldID(ctx context.Context, holdID string) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE hold_id=$1`, holdID)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, "booking for hold", holdID)
	}
	return b, nil
}

func (r *PGBookingRepository) ListByRider(ctx context.Context, riderID string) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE rider_id=$1 ORDER BY created_at DESC`, riderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ConfirmedSeats(ctx context.Context, routeID string) (int, error) {
	var seats int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(seat_count), 0) FROM bookings WHERE route_id=$1 AND status=$2`,
		routeID, domain.BookingStatusConfirmed).Scan(&seats)
	return seats, err
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return err
	}
	return expectOne(res, "booking", id)
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.HoldID, &b.RouteID, &b.RiderID, &b.SeatCount, &b.TotalAmount,
		&b.Status, &b.PaymentRef, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
