package repository

import (
	"context"
	"database/sql"

	"github.com/openride/seatreserve/internal/domain"
)

const ratingColumns = `id, booking_id, route_id, rider_id, driver_id, score, comment, created_at`

type PGRatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *PGRatingRepository {
	return &PGRatingRepository{db: db}
}

func (r *PGRatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO ratings (`+ratingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rating.ID, rating.BookingID, rating.RouteID, rating.RiderID, rating.DriverID,
		rating.Score, rating.Comment, rating.CreatedAt)
	return insertErr(err, "rating for booking", rating.BookingID)
}

func (r *PGRatingRepository) GetByBooking(ctx context.Context, bookingID string) (*domain.Rating, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE booking_id=$1`, bookingID)
	rating, err := scanRating(row)
	if err != nil {
		return nil, notFound(err, "rating for booking", bookingID)
	}
	return rating, nil
}

func (r *PGRatingRepository) ListByDriver(ctx context.Context, driverID string) ([]domain.Rating, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE driver_id=$1 ORDER BY created_at DESC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, *rating)
	}
	return ratings, rows.Err()
}

func scanRating(row rowScanner) (*domain.Rating, error) {
	var rating domain.Rating
	if err := row.Scan(&rating.ID, &rating.BookingID, &rating.RouteID, &rating.RiderID, &rating.DriverID,
		&rating.Score, &rating.Comment, &rating.CreatedAt); err != nil {
		return nil, err
	}
	return &rating, nil
}

var _ RatingRepository = (*PGRatingRepository)(nil)
