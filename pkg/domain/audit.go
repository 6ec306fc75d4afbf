package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventKind names what happened.
type AuditEventKind string

const (
	EventLogin            AuditEventKind = "login"
	EventLoginFailure     AuditEventKind = "login_failure"
	EventLogout           AuditEventKind = "logout"
	EventValidationFail   AuditEventKind = "validation_fail"
	EventAccessDenied     AuditEventKind = "access_denied"
	EventChangePassword   AuditEventKind = "change_password"
	EventRecoveryVerified AuditEventKind = "recovery_verified"
	EventAccountCreate    AuditEventKind = "account_create"
)

// AnonymousAllowed reports whether records of this kind may omit the actor id.
func (k AuditEventKind) AnonymousAllowed() bool {
	switch k {
	case EventLoginFailure, EventValidationFail, EventAccessDenied:
		return true
	}
	return false
}

// RequiresClientDetails reports whether records of this kind must carry an
// actor label and client address.
func (k AuditEventKind) RequiresClientDetails() bool {
	switch k {
	case EventLogin, EventLoginFailure, EventValidationFail, EventAccessDenied:
		return true
	}
	return false
}

// AuditOutcome is the result status of an audited event.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFail    AuditOutcome = "fail"
	OutcomePending AuditOutcome = "pending"
)

// ErrAuditRecordInvalid is returned for records missing a required field.
var ErrAuditRecordInvalid = errors.New("invalid audit record")

// AuditRecord is one append-only entry in the audit trail.
type AuditRecord struct {
	ID             uuid.UUID      `json:"id"`
	ActorID        *uuid.UUID     `json:"actor_id,omitempty"`
	ActorLabel     string         `json:"actor_label,omitempty"`
	EventKind      AuditEventKind `json:"event_kind"`
	TargetEntityID *string        `json:"target_entity_id,omitempty"`
	Quantity       *int           `json:"quantity,omitempty"`
	PriorValue     *string        `json:"prior_value,omitempty"`
	NewValue       *string        `json:"new_value,omitempty"`
	Description    string         `json:"description"`
	Outcome        AuditOutcome   `json:"outcome"`
	ClientAddress  string         `json:"client_address,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Validate checks the required-field rules for the record's kind.
func (r *AuditRecord) Validate() error {
	if r.EventKind == "" {
		return fmt.Errorf("%w: event kind is required", ErrAuditRecordInvalid)
	}
	if r.Description == "" {
		return fmt.Errorf("%w: description is required", ErrAuditRecordInvalid)
	}
	switch r.Outcome {
	case OutcomeSuccess, OutcomeFail, OutcomePending:
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrAuditRecordInvalid, r.Outcome)
	}
	if r.ActorID == nil && !r.EventKind.AnonymousAllowed() {
		return fmt.Errorf("%w: actor id is required for %s", ErrAuditRecordInvalid, r.EventKind)
	}
	if r.EventKind.RequiresClientDetails() {
		if r.ActorLabel == "" {
			return fmt.Errorf("%w: actor label is required for %s", ErrAuditRecordInvalid, r.EventKind)
		}
		if r.ClientAddress == "" {
			return fmt.Errorf("%w: client address is required for %s", ErrAuditRecordInvalid, r.EventKind)
		}
	}
	return nil
}
