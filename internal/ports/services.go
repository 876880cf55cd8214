package ports

import (
	"time"

	"github.com/taskmaster/daybook/internal/domain/entities"
)

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	User         *entities.Profile `json:"user"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Task related types
type CreateTaskRequest struct {
	Content     string `json:"content" validate:"required,max=2000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=none low medium high"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	HasReminder bool   `json:"hasReminder"`
}

// UpdateStatusRequest toggles when Completed is omitted
type UpdateStatusRequest struct {
	Completed *bool `json:"completed"`
}

type UpdateContentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=none low medium high"`
}

type UpdateReminderRequest struct {
	HasReminder bool `json:"hasReminder"`
}

type MoveTaskRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type ReorderRequest struct {
	From int `json:"from" validate:"min=0"`
	To   int `json:"to" validate:"min=0"`
}

type SetActiveDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type TaskResponse struct {
	Task   entities.Task `json:"task"`
	Status SyncStatus    `json:"sync"`
}

type CollectionResponse struct {
	ActiveDate string              `json:"activeDate"`
	Tasks      entities.Collection `json:"tasks"`
	Revision   uint64              `json:"revision"`
}

type DayResponse struct {
	Date  string          `json:"date"`
	Tasks []entities.Task `json:"tasks"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// SyncStatus reports what has been persisted where
type SyncStatus struct {
	Revision           uint64     `json:"revision"`
	LocalRevision      uint64     `json:"localRevision"`
	RemoteRevision     uint64     `json:"remoteRevision"`
	SignedIn           bool       `json:"signedIn"`
	UserID             string     `json:"userId,omitempty"`
	RemoteEnabled      bool       `json:"remoteEnabled"`
	PushInFlight       bool       `json:"pushInFlight"`
	LastLocalError     string     `json:"lastLocalError,omitempty"`
	LastRemoteError    string     `json:"lastRemoteError,omitempty"`
	LastRemoteSyncedAt *time.Time `json:"lastRemoteSyncedAt,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DocumentCodec converts the collection to and from a portable text document
type DocumentCodec interface {
	Serialize(c entities.Collection) string
	Parse(text string, now time.Time) (entities.Collection, int)
	Filename(now time.Time) string
}
