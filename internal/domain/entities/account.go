package entities

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public record of a user
type Profile struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	DisplayName *string   `json:"display_name,omitempty" db:"display_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Identity holds the credentials of a user. It never leaves the server.
type Identity struct {
	UserID       uuid.UUID  `json:"-" db:"user_id"`
	Email        string     `json:"-" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"-" db:"created_at"`
	LastLoginAt  *time.Time `json:"-" db:"last_login_at"`
}
