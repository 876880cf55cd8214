package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/daybook/internal/domain/entities"
)

var (
	// ErrKeyNotFound is returned by KeyValueStore.Get for an absent key
	ErrKeyNotFound = errors.New("key not found")

	// ErrPartialPersist marks a remote persist that failed after it had
	// already changed the stored rows
	ErrPartialPersist = errors.New("remote persist incomplete")
)

// KeyValueStore is the on-device storage the local task store writes to
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// LocalTaskStore persists the whole collection on the device, plus the id of
// the signed-in user so a restart can decrypt it again
type LocalTaskStore interface {
	Save(ctx context.Context, c entities.Collection, identity string) error
	Load(ctx context.Context, identity string) entities.Collection
	SaveSession(ctx context.Context, userID string) error
	LoadSession(ctx context.Context) string
	ClearSession(ctx context.Context) error
	Clear(ctx context.Context) error
}

// TaskRow is one task as stored by the remote row store
type TaskRow struct {
	ID          string     `db:"id" bson:"_id"`
	UserID      string     `db:"user_id" bson:"user_id"`
	Content     string     `db:"content" bson:"content"`
	IsCompleted bool       `db:"is_completed" bson:"is_completed"`
	CreatedAt   time.Time  `db:"created_at" bson:"created_at"`
	CompletedAt *time.Time `db:"completed_at" bson:"completed_at,omitempty"`
	Priority    string     `db:"priority" bson:"priority"`
	Date        string     `db:"date" bson:"date"`
	Position    int        `db:"position" bson:"position"`
	HasReminder bool       `db:"has_reminder" bson:"has_reminder"`
	IsEncrypted bool       `db:"is_encrypted" bson:"is_encrypted"`
}

// TaskRowStore is the storage driver behind the remote task repository.
// ListByUser returns rows ordered by date then position.
type TaskRowStore interface {
	ListByUser(ctx context.Context, userID string) ([]TaskRow, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	InsertBatch(ctx context.Context, rows []TaskRow) error
}

// RemoteTaskRepository maps collections to and from remote rows
type RemoteTaskRepository interface {
	Fetch(ctx context.Context, userID string) (entities.Collection, error)
	Persist(ctx context.Context, c entities.Collection, userID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *entities.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Profile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IdentityRepository defines the interface for credential and token operations
type IdentityRepository interface {
	Create(ctx context.Context, identity *entities.Identity) error
	GetByEmail(ctx context.Context, email string) (*entities.Identity, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, userID uuid.UUID) error

	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        int        `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
