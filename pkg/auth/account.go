package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// ChangePasswordRequest is an authenticated password change.
type ChangePasswordRequest struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// AccountService serves the signed-in user's own account.
type AccountService struct {
	store   *CredentialStore
	auditor Auditor
	logger  *slog.Logger
}

// NewAccountService creates an account service.
func NewAccountService(store *CredentialStore, auditor Auditor, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{store: store, auditor: auditor, logger: logger}
}

// Profile returns the current profile of the session's user.
func (s *AccountService) Profile(ctx context.Context, sess *domain.Session) (*domain.Profile, error) {
	if !sess.Authenticated() {
		return nil, domain.ErrSessionNotFound
	}
	c, err := s.store.Get(ctx, *sess.UserID)
	if err != nil {
		return nil, err
	}
	p := c.Profile()
	return &p, nil
}

// ChangePassword replaces the user's secret after re-checking the old one.
// The caller must end the session on success.
func (s *AccountService) ChangePassword(ctx context.Context, sess *domain.Session, req ChangePasswordRequest, clientAddr string) error {
	if !sess.Authenticated() {
		return domain.ErrSessionNotFound
	}

	c, err := s.store.Get(ctx, *sess.UserID)
	if err != nil {
		return err
	}

	if !s.store.VerifySecret(c, req.OldPassword) {
		s.auditRejected(ctx, c, "current password is incorrect", clientAddr)
		return domain.ErrWrongSecret
	}
	if req.NewPassword != req.ConfirmPassword {
		s.auditRejected(ctx, c, domain.ErrConfirmationMismatch.Error(), clientAddr)
		return domain.ErrConfirmationMismatch
	}

	if err := s.store.ChangeSecret(ctx, c.ID, req.NewPassword); err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			s.auditRejected(ctx, c, err.Error(), clientAddr)
		}
		return err
	}

	return s.auditor.Record(ctx, domain.AuditRecord{
		ActorID:       &c.ID,
		ActorLabel:    c.Label(),
		EventKind:     domain.EventChangePassword,
		Description:   "password changed by account owner",
		Outcome:       domain.OutcomeSuccess,
		ClientAddress: clientAddr,
	})
}

func (s *AccountService) auditRejected(ctx context.Context, c *domain.Credential, reason, clientAddr string) {
	err := s.auditor.Record(ctx, domain.AuditRecord{
		ActorID:       &c.ID,
		ActorLabel:    c.Label(),
		EventKind:     domain.EventValidationFail,
		Description:   "password change rejected: " + reason,
		Outcome:       domain.OutcomeFail,
		ClientAddress: clientAddr,
	})
	if err != nil {
		s.logger.Error("audit failed on rejected password change", "error", err)
	}
}
