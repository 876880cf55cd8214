package services

import (
	"errors"
	"sync"

	"github.com/taskmaster/daybook/internal/domain/entities"
)

// errUnchanged lets a mutation report that it left the collection as it was,
// so the revision is not bumped.
var errUnchanged = errors.New("collection unchanged")

// Session is the in-memory state of the running app: the collection, the
// date being viewed and who is signed in. Every successful mutation bumps the
// revision; persisters compare revisions instead of diffing snapshots.
type Session struct {
	mu         sync.RWMutex
	tasks      entities.Collection
	activeDate string
	userID     string
	token      string
	revision   uint64
}

// NewSession creates an empty, signed-out session
func NewSession() *Session {
	return &Session{tasks: entities.Collection{}}
}

// Mutate applies fn to the current collection under the write lock and stores
// its result. fn must not modify its argument.
func (s *Session) Mutate(fn func(entities.Collection) (entities.Collection, error)) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.tasks)
	if errors.Is(err, errUnchanged) {
		return s.revision, nil
	}
	if err != nil {
		return s.revision, err
	}
	if next == nil {
		next = entities.Collection{}
	}
	s.tasks = next
	s.revision++
	return s.revision, nil
}

// Reset replaces the collection and the active date without counting it as a
// mutation. Used when the state is read back from storage.
func (s *Session) Reset(c entities.Collection, activeDate string) {
	if c == nil {
		c = entities.Collection{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = c
	s.activeDate = activeDate
}

// Snapshot returns a copy of the collection and the revision it belongs to
func (s *Session) Snapshot() (entities.Collection, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.Clone(), s.revision
}

// Tasks returns a copy of the tasks filed under date
func (s *Session) Tasks(date string) []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.tasks[date]
	out := make([]entities.Task, len(src))
	for i, t := range src {
		out[i] = t.Clone()
	}
	return out
}

func (s *Session) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Session) ActiveDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeDate
}

func (s *Session) SetActiveDate(date string) error {
	if !entities.IsValidDate(date) {
		return entities.ErrInvalidDate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDate = date
	return nil
}

// Identity returns the signed-in user id and token; both are empty when signed out
func (s *Session) Identity() (userID, token string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.token
}

func (s *Session) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID != ""
}

func (s *Session) signIn(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.token = token
}

func (s *Session) signOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.token = ""
}
