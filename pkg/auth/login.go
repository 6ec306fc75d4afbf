package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Auditor appends security events to the audit trail.
type Auditor interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}

// LoginResult describes an authenticated login.
type LoginResult struct {
	Credential  *domain.Credential
	Profile     domain.Profile
	Role        domain.Role
	LandingPath string
	// LastLoginAt is the login before this one, nil on first login.
	LastLoginAt *time.Time
}

// LoginService runs the login state machine: lock check, secret check,
// failure counting and the audit trail for each outcome.
type LoginService struct {
	store   *CredentialStore
	auditor Auditor
	logger  *slog.Logger
}

// NewLoginService creates a login service.
func NewLoginService(store *CredentialStore, auditor Auditor, logger *slog.Logger) *LoginService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginService{store: store, auditor: auditor, logger: logger}
}

// Attempt authenticates identity with plaintext.
//
// Unknown identities return domain.ErrUnknownIdentity and wrong secrets
// return domain.ErrWrongSecret; callers should present both the same way.
// A locked account returns a *domain.LockedError.
func (s *LoginService) Attempt(ctx context.Context, identity, plaintext, clientAddr string) (*LoginResult, error) {
	identity = NormalizeIdentity(identity)

	c, err := s.store.Lookup(ctx, identity)
	if errors.Is(err, domain.ErrUnknownIdentity) {
		s.auditDenial(ctx, domain.AuditRecord{
			ActorLabel:    identity,
			EventKind:     domain.EventLoginFailure,
			Description:   "login failed: unknown identity",
			Outcome:       domain.OutcomeFail,
			ClientAddress: clientAddr,
		})
		return nil, domain.ErrUnknownIdentity
	}
	if err != nil {
		return nil, err
	}

	now := s.store.Now()
	if c.IsLockedAt(now) {
		remaining := c.LockRemaining(now)
		s.auditDenial(ctx, domain.AuditRecord{
			ActorID:       &c.ID,
			ActorLabel:    c.Label(),
			EventKind:     domain.EventAccessDenied,
			Description:   fmt.Sprintf("login refused: account locked for %d more seconds", domain.CeilSeconds(remaining)),
			Outcome:       domain.OutcomeFail,
			ClientAddress: clientAddr,
		})
		return nil, &domain.LockedError{Remaining: remaining}
	}

	if !s.store.VerifySecret(c, plaintext) {
		return nil, s.failAttempt(ctx, c, clientAddr)
	}

	if !c.Role.Valid() {
		s.auditDenial(ctx, domain.AuditRecord{
			ActorID:       &c.ID,
			ActorLabel:    c.Label(),
			EventKind:     domain.EventAccessDenied,
			Description:   "login refused: account has an unrecognized role",
			Outcome:       domain.OutcomeFail,
			ClientAddress: clientAddr,
		})
		return nil, &domain.AccessDeniedError{Role: domain.RoleUnknown, Resource: "login"}
	}

	prev, err := s.store.RecordSuccess(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	err = s.auditor.Record(ctx, domain.AuditRecord{
		ActorID:       &c.ID,
		ActorLabel:    c.Label(),
		EventKind:     domain.EventLogin,
		Description:   fmt.Sprintf("%s logged in", c.Role),
		Outcome:       domain.OutcomeSuccess,
		ClientAddress: clientAddr,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Credential:  c,
		Profile:     c.Profile(),
		Role:        c.Role,
		LandingPath: c.Role.LandingPath(),
		LastLoginAt: prev,
	}, nil
}

func (s *LoginService) failAttempt(ctx context.Context, c *domain.Credential, clientAddr string) error {
	state, err := s.store.RecordFailedAttempt(ctx, c.ID)
	if err != nil {
		return err
	}

	now := s.store.Now()
	rec := domain.AuditRecord{
		ActorID:       &c.ID,
		ActorLabel:    c.Label(),
		EventKind:     domain.EventLoginFailure,
		Outcome:       domain.OutcomeFail,
		ClientAddress: clientAddr,
	}

	switch {
	case state.NewlyLocked:
		rec.Description = fmt.Sprintf("login failed: wrong password, account locked for %d seconds",
			domain.CeilSeconds(state.LockedUntil.Sub(now)))
		s.auditDenial(ctx, rec)
		return &domain.LockedError{Remaining: state.LockedUntil.Sub(now)}
	case state.LockedUntil != nil && now.Before(*state.LockedUntil):
		// Another request locked the account first.
		rec.Description = "login failed: wrong password, account already locked"
		s.auditDenial(ctx, rec)
		return &domain.LockedError{Remaining: state.LockedUntil.Sub(now)}
	default:
		rec.Description = fmt.Sprintf("login failed: wrong password, %d attempts remaining",
			s.store.AttemptsRemaining(state))
		s.auditDenial(ctx, rec)
		return domain.ErrWrongSecret
	}
}

// auditDenial records an event on a path that already denies. A failed
// append is logged and the denial stands.
func (s *LoginService) auditDenial(ctx context.Context, rec domain.AuditRecord) {
	if err := s.auditor.Record(ctx, rec); err != nil {
		s.logger.Error("audit failed on login denial", "event", rec.EventKind, "actor", rec.ActorLabel, "error", err)
	}
}

// Logout records the end of an authenticated session. The caller destroys
// the session whatever the outcome; a failed append is logged only.
func (s *LoginService) Logout(ctx context.Context, sess *domain.Session, clientAddr string) {
	if !sess.Authenticated() {
		return
	}
	err := s.auditor.Record(ctx, domain.AuditRecord{
		ActorID:       sess.UserID,
		ActorLabel:    sess.Identity,
		EventKind:     domain.EventLogout,
		Description:   fmt.Sprintf("%s logged out", sess.Role),
		Outcome:       domain.OutcomeSuccess,
		ClientAddress: clientAddr,
	})
	if err != nil {
		s.logger.Error("audit failed on logout", "actor", sess.Identity, "error", err)
	}
}
