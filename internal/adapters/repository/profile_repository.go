package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/ports"
)

// ProfileRepositoryImpl implements the ProfileRepository interface
type ProfileRepositoryImpl struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sqlx.DB) ports.ProfileRepository {
	return &ProfileRepositoryImpl{db: db}
}

func (r *ProfileRepositoryImpl) Create(ctx context.Context, profile *entities.Profile) error {
	query := `
		INSERT INTO profiles (id, email, display_name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		profile.ID, profile.Email, profile.DisplayName,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	return nil
}

func (r *ProfileRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Profile, error) {
	query := `
		SELECT id, email, display_name, created_at, updated_at
		FROM profiles
		WHERE id = $1`

	var profile entities.Profile
	err := r.db.GetContext(ctx, &profile, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile by id: %w", err)
	}

	return &profile, nil
}

// Delete is idempotent: a missing profile is not an error, so a retried
// account deletion can pass this step.
func (r *ProfileRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
