package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Authentication errors
var (
	ErrUnknownIdentity    = errors.New("unknown identity")
	ErrWrongSecret        = errors.New("wrong secret")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrHandleAlreadyTaken = errors.New("handle already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidToken       = errors.New("invalid token")
)

// Password lifecycle errors
var (
	ErrPolicyViolation      = errors.New("password does not meet requirements")
	ErrSecretTooYoung       = errors.New("password was changed less than 24 hours ago")
	ErrSecretReused         = errors.New("password matches the current or a recent password")
	ErrSecretConflict       = errors.New("password was changed concurrently")
	ErrConfirmationMismatch = errors.New("password confirmation does not match")
)

// Recovery errors
var (
	ErrRecoveryAnswerMismatch  = errors.New("security answers do not match")
	ErrRecoverySessionExpired  = errors.New("recovery session missing or expired")
	ErrInvalidSecurityQuestion = errors.New("security question text is required")
)

// Authorization errors
var (
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidRole  = errors.New("invalid role")
)

// Validation errors
var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidHandle    = errors.New("invalid handle format")
	ErrInvalidName      = errors.New("invalid name")
	ErrBrandNameMissing = errors.New("brand name is required for vendors")
)

// ErrStoreUnavailable is returned when the credential store, session store or
// audit sink cannot be reached within the configured timeout.
var ErrStoreUnavailable = errors.New("store unavailable")

// LockedError reports an account lock together with the remaining wait.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s (retry in %ds)", ErrAccountLocked.Error(), e.RemainingSeconds())
}

// Is makes errors.Is(err, ErrAccountLocked) hold.
func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// RemainingSeconds rounds the remaining lock duration up to whole seconds.
func (e *LockedError) RemainingSeconds() int {
	return CeilSeconds(e.Remaining)
}

// PolicyError carries the violations reported by the password policy.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	if len(e.Violations) == 0 {
		return ErrPolicyViolation.Error()
	}
	return ErrPolicyViolation.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// AccessDeniedError describes a role that may not reach a resource.
type AccessDeniedError struct {
	Role     Role
	Resource string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: role %q may not access %s", e.Role.String(), e.Resource)
}

func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// CeilSeconds converts a duration to whole seconds, rounding up.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
