package repository

import (
	"context"
	"database/sql"

	"github.com/openride/seatreserve/internal/domain"
)

const userColumns = `id, email, name, phone, role, password_hash, created_at`

type PGUserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *PGUserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1, lower($2), $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.Phone, u.Role, u.PasswordHash, u.CreatedAt)
	return insertErr(err, "user", u.Email)
}

func (r *PGUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email=lower(trim($1))`, email)
}

func (r *PGUserRepository) get(ctx context.Context, query, key string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, key).Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user", key)
	}
	return &u, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
