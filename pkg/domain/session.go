package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the server-side state addressed by the session cookie.
// An anonymous session carries only a recovery marker, or nothing.
type Session struct {
	ID          string          `json:"id"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	Identity    string          `json:"identity,omitempty"`
	Role        Role            `json:"role,omitempty"`
	Profile     *Profile        `json:"profile,omitempty"`
	Recovery    *RecoveryMarker `json:"recovery,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// Authenticated reports whether a user is bound to the session.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != nil
}

// IsValidAt reports whether the session has not expired at now.
func (s *Session) IsValidAt(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// RecoveryMarker records that the security answers for an identity were
// verified in this session.
type RecoveryMarker struct {
	UserID     uuid.UUID `json:"user_id"`
	Identity   string    `json:"identity"`
	VerifiedAt time.Time `json:"verified_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ValidAt reports whether the marker is present and unexpired at now.
func (m *RecoveryMarker) ValidAt(now time.Time) bool {
	return m != nil && now.Before(m.ExpiresAt)
}
