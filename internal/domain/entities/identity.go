package entities

import "github.com/google/uuid"

// NewID returns a fresh canonical task identifier.
func NewID() string {
	return uuid.NewString()
}

// IsCanonicalID reports whether id is a hyphenated 36-character UUID, the only
// form the remote row store accepts.
func IsCanonicalID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// EnsureCanonicalID keeps id when canonical and regenerates it otherwise.
func EnsureCanonicalID(id string) string {
	if IsCanonicalID(id) {
		return id
	}
	return NewID()
}
