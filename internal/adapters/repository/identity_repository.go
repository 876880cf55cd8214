package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/ports"
)

// IdentityRepositoryImpl implements the IdentityRepository interface
type IdentityRepositoryImpl struct {
	db *sqlx.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *sqlx.DB) ports.IdentityRepository {
	return &IdentityRepositoryImpl{db: db}
}

func (r *IdentityRepositoryImpl) Create(ctx context.Context, identity *entities.Identity) error {
	query := `
		INSERT INTO auth_identities (user_id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		identity.UserID, strings.ToLower(identity.Email), identity.PasswordHash,
	).Scan(&identity.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entities.ErrUserAlreadyExists
		}
		return fmt.Errorf("create identity: %w", err)
	}

	return nil
}

func (r *IdentityRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.Identity, error) {
	query := `
		SELECT user_id, email, password_hash, created_at, last_login_at
		FROM auth_identities
		WHERE email = $1`

	var identity entities.Identity
	err := r.db.GetContext(ctx, &identity, query, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get identity by email: %w", err)
	}

	return &identity, nil
}

func (r *IdentityRepositoryImpl) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `UPDATE auth_identities SET last_login_at = $2 WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// Delete revokes the user's refresh tokens and removes the identity in one
// transaction.
func (r *IdentityRepositoryImpl) Delete(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM auth_identities WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *IdentityRepositoryImpl) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *IdentityRepositoryImpl) GetRefreshToken(ctx context.Context, tokenHash string) (*ports.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	var token ports.RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	return &token, nil
}

func (r *IdentityRepositoryImpl) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = CURRENT_TIMESTAMP
		WHERE token_hash = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

func (r *IdentityRepositoryImpl) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}

	return nil
}
