// Package local persists the task collection on the device, encrypted, behind
// a pluggable key/value backend.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/crypto"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

const (
	// RecordKey is the single key the collection is stored under.
	RecordKey = "daybook.tasks"
	// SessionKey holds the id of the signed-in user, sealed with the anonymous key.
	SessionKey = "daybook.session"
)

type sessionRecord struct {
	UserID string `json:"userId"`
}

// Store implements ports.LocalTaskStore
type Store struct {
	kv     ports.KeyValueStore
	codec  *crypto.Codec
	logger *logger.Logger
}

// NewStore creates a local task store
func NewStore(kv ports.KeyValueStore, codec *crypto.Codec, log *logger.Logger) *Store {
	return &Store{
		kv:     kv,
		codec:  codec,
		logger: log.WithComponent("local_store"),
	}
}

// Save encrypts the full collection under identity and writes it in one call
func (s *Store) Save(ctx context.Context, c entities.Collection, identity string) error {
	sealed, err := s.codec.Encrypt(c.Clone(), identity)
	if err != nil {
		return fmt.Errorf("encrypt collection: %w", err)
	}
	if err := s.kv.Set(ctx, RecordKey, sealed); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	return nil
}

// Load never fails: a missing or unreadable record yields an empty collection,
// and malformed date entries are dropped individually. A record sealed with the
// anonymous key is still read for a signed-in identity.
func (s *Store) Load(ctx context.Context, identity string) entities.Collection {
	raw, err := s.kv.Get(ctx, RecordKey)
	if err != nil {
		if !errors.Is(err, ports.ErrKeyNotFound) {
			s.logger.Warnw("Failed to read local record", "error", err.Error())
		}
		return entities.Collection{}
	}

	var entries map[string]json.RawMessage
	if !s.codec.DecryptInto(raw, identity, &entries) || entries == nil {
		// a sign-in whose save failed leaves the record sealed anonymously
		entries = nil
		if identity == "" || !s.codec.DecryptInto(raw, "", &entries) || entries == nil {
			s.logger.Warnw("Local record is not a task collection, starting empty")
			return entities.Collection{}
		}
		s.logger.Warnw("Local record is sealed anonymously, reading it for the signed-in user")
	}

	out := make(entities.Collection, len(entries))
	for date, msg := range entries {
		if !entities.IsValidDate(date) {
			s.logger.Warnw("Dropping entry with invalid date key", "date", date)
			continue
		}

		var tasks []entities.Task
		if err := json.Unmarshal(msg, &tasks); err != nil {
			s.logger.Warnw("Dropping malformed date entry", "date", date, "error", err.Error())
			continue
		}
		if len(tasks) == 0 {
			continue
		}

		for i := range tasks {
			sanitize(&tasks[i], date)
		}
		out[date] = tasks
	}
	return out
}

// SaveSession remembers the signed-in user across restarts
func (s *Store) SaveSession(ctx context.Context, userID string) error {
	sealed, err := s.codec.Encrypt(sessionRecord{UserID: userID}, "")
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}
	if err := s.kv.Set(ctx, SessionKey, sealed); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the remembered user id, or "" when signed out
func (s *Store) LoadSession(ctx context.Context) string {
	raw, err := s.kv.Get(ctx, SessionKey)
	if err != nil {
		if !errors.Is(err, ports.ErrKeyNotFound) {
			s.logger.Warnw("Failed to read local session", "error", err.Error())
		}
		return ""
	}
	var rec sessionRecord
	if !s.codec.DecryptInto(raw, "", &rec) {
		s.logger.Warnw("Local session record is unreadable, ignoring it")
		return ""
	}
	return rec.UserID
}

// ClearSession forgets the signed-in user
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Clear removes the stored collection and session
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, RecordKey); err != nil {
		return fmt.Errorf("clear local record: %w", err)
	}
	return s.ClearSession(ctx)
}

// sanitize repairs fields older records may lack
func sanitize(t *entities.Task, date string) {
	if t.ID == "" {
		t.ID = entities.NewID()
	}
	t.Date = date
	if !t.Priority.IsValid() {
		t.Priority = entities.DefaultPriority
	}
	if !t.IsCompleted {
		t.CompletedAt = nil
	}
}
