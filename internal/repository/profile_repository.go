package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ProfileRepository persists optional per-user contact profiles.
// GetByUserID returns pgx.ErrNoRows when no profile exists so callers can
// branch deterministically between create and update.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (user_id, phone, address, city, postal_code)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.UserID,
		profile.Phone,
		profile.Address,
		profile.City,
		profile.PostalCode,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET phone=$1, address=$2, city=$3, postal_code=$4, updated_at=NOW()
        WHERE user_id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		profile.Phone,
		profile.Address,
		profile.City,
		profile.PostalCode,
		profile.UserID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `
        SELECT user_id, phone, address, city, postal_code, created_at, updated_at
        FROM profiles WHERE user_id=$1`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Phone,
		&profile.Address,
		&profile.City,
		&profile.PostalCode,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
