package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JournalID identifies one command journal row (UUIDv7).
type JournalID string

// APIKeyID identifies one stored API key (UUIDv7).
type APIKeyID string

// NewJournalID generates a UUIDv7 journal identifier.
// Time-ordered IDs keep journal inserts clustered.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewJournalID() JournalID {
	return JournalID(uuid.Must(uuid.NewV7()).String())
}

// NewAPIKeyID generates a UUIDv7 API key row identifier.
func NewAPIKeyID() APIKeyID {
	return APIKeyID(uuid.Must(uuid.NewV7()).String())
}

// NewRequestID generates a request identifier for callers that do not supply one.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// JournalIDTime extracts the timestamp embedded in a UUIDv7 journal ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func JournalIDTime(id JournalID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

// ValidateRequestID checks a client-supplied request identifier.
// Request ids are opaque but must be non-empty, bounded and URL-safe so they can
// key the idempotency cache and appear in logs verbatim.
func ValidateRequestID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: requestId required", ErrInvalidRequest)
	}
	if len(id) > MaxRequestIDLength {
		return fmt.Errorf("%w: requestId exceeds %d characters", ErrInvalidRequest, MaxRequestIDLength)
	}
	for _, c := range id {
		if !isRequestIDChar(c) {
			return fmt.Errorf("%w: requestId contains invalid character %q", ErrInvalidRequest, c)
		}
	}
	return nil
}

func isRequestIDChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == ':':
		return true
	}
	return false
}
