package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openride/seatreserve/internal/domain"
)

const uniqueViolation = "23505"

// NewPostgresStore returns a Store over a database/sql handle. In production
// the handle comes from stdlib.OpenDBFromPool on a pgxpool.Pool.
func NewPostgresStore(db *sql.DB) Store {
	return Store{
		Routes:   NewRouteRepository(db),
		Holds:    NewHoldRepository(db),
		Bookings: NewBookingRepository(db),
		Payments: NewPaymentRepository(db),
		Ratings:  NewRatingRepository(db),
		Users:    NewUserRepository(db),
	}
}

// notFound turns sql.ErrNoRows into the domain kind and passes anything else through.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return err
}

// expectOne reports a conflict when a conditional update matched nothing.
func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s changed concurrently: %w", what, id, domain.ErrConflict)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// insertErr maps a unique violation to domain.ErrConflict.
func insertErr(err error, what, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrConflict)
	}
	return err
}
