package repository

import (
	"context"
	"database/sql"

	"github.com/openride/seatreserve/internal/domain"
)

const attemptColumns = `id, hold_id, route_id, provider_ref, amount_minor_units, currency, state, superseded, created_at, updated_at`

type PGPaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PGPaymentRepository {
	return &PGPaymentRepository{db: db}
}

func (r *PGPaymentRepository) Create(ctx context.Context, a *domain.PaymentAttempt) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.HoldID, a.RouteID, a.ProviderRef, a.AmountMinorUnits, a.Currency, a.State, a.Superseded, a.CreatedAt, a.UpdatedAt)
	return insertErr(err, "payment attempt", a.ProviderRef)
}

func (r *PGPaymentRepository) GetByProviderRef(ctx context.Context, providerRef string) (*domain.PaymentAttempt, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM payment_attempts WHERE provider_ref=$1`, providerRef)
	a, err := scanAttempt(row)
	if err != nil {
		return nil, notFound(err, "payment attempt", providerRef)
	}
	return a, nil
}

func (r *PGPaymentRepository) SupersedeLive(ctx context.Context, holdID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE payment_attempts SET state=$1, superseded=TRUE, updated_at=now()
		WHERE hold_id=$2 AND state=$3 AND NOT superseded`,
		domain.PaymentStateCancelled, holdID, domain.PaymentStateInitiated)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PGPaymentRepository) UpdateState(ctx context.Context, id string, from, to domain.PaymentState) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payment_attempts SET state=$1, updated_at=now() WHERE id=$2 AND state=$3`, to, id, from)
	if err != nil {
		return err
	}
	return expectOne(res, "payment attempt", id)
}

func (r *PGPaymentRepository) ListInitiated(ctx context.Context) ([]domain.PaymentAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM payment_attempts WHERE state=$1 ORDER BY created_at`,
		domain.PaymentStateInitiated)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]domain.PaymentAttempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func scanAttempt(row rowScanner) (*domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	if err := row.Scan(&a.ID, &a.HoldID, &a.RouteID, &a.ProviderRef, &a.AmountMinorUnits, &a.Currency,
		&a.State, &a.Superseded, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
