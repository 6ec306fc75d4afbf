package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the per-account security record: identity, secret material,
// lockout counters and recovery questions.
type Credential struct {
	ID        uuid.UUID
	Email     string
	Handle    *string
	FullName  string
	BrandName *string
	Role      Role

	SecretHash      string
	SecretHistory   SecretHistory
	SecretUpdatedAt time.Time

	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	LastAttemptAt  *time.Time

	SecurityQuestions [2]SecurityQuestion

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecurityQuestion pairs question text with the hash of its normalized answer.
type SecurityQuestion struct {
	Question   string
	AnswerHash string
}

// IsLockedAt reports whether the account is locked at now.
// A lockedUntil in the past is the same as no lock.
func (c *Credential) IsLockedAt(now time.Time) bool {
	return c.LockedUntil != nil && now.Before(*c.LockedUntil)
}

// LockRemaining returns how long the lock still holds at now, or zero.
func (c *Credential) LockRemaining(now time.Time) time.Duration {
	if !c.IsLockedAt(now) {
		return 0
	}
	return c.LockedUntil.Sub(now)
}

// Label is the human-readable identity used in audit records.
func (c *Credential) Label() string {
	if c.Email != "" {
		return c.Email
	}
	if c.Handle != nil {
		return *c.Handle
	}
	return c.ID.String()
}

// Questions returns the question texts only.
func (c *Credential) Questions() [2]string {
	return [2]string{c.SecurityQuestions[0].Question, c.SecurityQuestions[1].Question}
}

// Profile projects the credential onto the fields carried in a session.
func (c *Credential) Profile() Profile {
	p := Profile{
		ID:        c.ID,
		FullName:  c.FullName,
		Email:     c.Email,
		Role:      c.Role,
		CreatedAt: c.CreatedAt,
	}
	if c.Role == RoleVendor && c.BrandName != nil {
		p.BrandName = *c.BrandName
	}
	return p
}

// Profile is the public view of an account.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	BrandName string    `json:"brand_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LockState is the result of recording a failed attempt.
type LockState struct {
	FailedAttempts int
	LockedUntil    *time.Time
	// NewlyLocked is true when this attempt crossed the threshold.
	NewlyLocked bool
}

// SecretUpdate replaces the current secret of an account. It only applies
// while the stored hash still equals ExpectedHash.
type SecretUpdate struct {
	ID           uuid.UUID
	ExpectedHash string
	NewHash      string
	History      SecretHistory
	UpdatedAt    time.Time
	// Questions, when set, are written in the same update.
	Questions *[2]SecurityQuestion
}
