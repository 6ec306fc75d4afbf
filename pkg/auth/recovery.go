package auth

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// DefaultRecoveryMarkerTTL bounds how long a verified recovery stays usable.
const DefaultRecoveryMarkerTTL = 10 * time.Minute

// RecoveryConfig holds recovery flow settings.
type RecoveryConfig struct {
	MarkerTTL time.Duration
	// UniformResponse hides whether an identity exists by answering unknown
	// identities with decoy questions.
	UniformResponse bool
}

// RecoveryChallenge is the question text shown for an identity.
type RecoveryChallenge struct {
	Identity     string    `json:"identity"`
	Questions    [2]string `json:"questions"`
	Requirements string    `json:"password_requirements,omitempty"`
}

// ResetRequest is the final step of a recovery.
type ResetRequest struct {
	Password string
	Confirm  string
	Answers  [2]SecurityAnswer
}

// SessionSaver persists a session after the recovery marker changes.
type SessionSaver interface {
	Save(ctx context.Context, sess *domain.Session) error
}

// RecoveryService runs the security-question recovery flow. The only state
// carried between steps is the recovery marker on the caller's session.
type RecoveryService struct {
	store    *CredentialStore
	sessions SessionSaver
	auditor  Auditor
	logger   *slog.Logger
	cfg      RecoveryConfig
}

// NewRecoveryService creates a recovery service.
func NewRecoveryService(store *CredentialStore, sessions SessionSaver, auditor Auditor, logger *slog.Logger, cfg RecoveryConfig) *RecoveryService {
	if cfg.MarkerTTL <= 0 {
		cfg.MarkerTTL = DefaultRecoveryMarkerTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryService{store: store, sessions: sessions, auditor: auditor, logger: logger, cfg: cfg}
}

// Request returns the security questions for identity.
func (s *RecoveryService) Request(ctx context.Context, identity, clientAddr string) (*RecoveryChallenge, error) {
	identity = NormalizeIdentity(identity)

	c, err := s.store.Lookup(ctx, identity)
	if errors.Is(err, domain.ErrUnknownIdentity) {
		s.auditDenial(ctx, domain.AuditRecord{
			ActorLabel:    labelOrAnonymous(identity),
			EventKind:     domain.EventValidationFail,
			Description:   "password recovery requested for unknown identity",
			Outcome:       domain.OutcomeFail,
			ClientAddress: clientAddr,
		})
		if s.cfg.UniformResponse {
			return &RecoveryChallenge{Identity: identity, Questions: DecoyQuestions(identity)}, nil
		}
		return nil, domain.ErrUnknownIdentity
	}
	if err != nil {
		return nil, err
	}

	return &RecoveryChallenge{Identity: identity, Questions: c.Questions()}, nil
}

// Verify checks both answers. On success a recovery marker is stored on
// sess. On a mismatch the challenge is returned for display again.
func (s *RecoveryService) Verify(ctx context.Context, sess *domain.Session, identity string, answers [2]string, clientAddr string) (*RecoveryChallenge, error) {
	identity = NormalizeIdentity(identity)

	c, err := s.store.Lookup(ctx, identity)
	if errors.Is(err, domain.ErrUnknownIdentity) {
		s.auditDenial(ctx, domain.AuditRecord{
			ActorLabel:    labelOrAnonymous(identity),
			EventKind:     domain.EventAccessDenied,
			Description:   "security answers submitted for unknown identity",
			Outcome:       domain.OutcomeFail,
			ClientAddress: clientAddr,
		})
		if s.cfg.UniformResponse {
			return &RecoveryChallenge{Identity: identity, Questions: DecoyQuestions(identity)}, domain.ErrRecoveryAnswerMismatch
		}
		return nil, domain.ErrUnknownIdentity
	}
	if err != nil {
		return nil, err
	}

	challenge := &RecoveryChallenge{Identity: identity, Questions: c.Questions()}
	if !s.store.VerifyAnswers(c, answers) {
		s.auditDenial(ctx, domain.AuditRecord{
			ActorID:       &c.ID,
			ActorLabel:    c.Label(),
			EventKind:     domain.EventAccessDenied,
			Description:   "password recovery denied: security answers do not match",
			Outcome:       domain.OutcomeFail,
			ClientAddress: clientAddr,
		})
		return challenge, domain.ErrRecoveryAnswerMismatch
	}

	err = s.auditor.Record(ctx, domain.AuditRecord{
		ActorID:       &c.ID,
		ActorLabel:    c.Label(),
		EventKind:     domain.EventRecoveryVerified,
		Description:   "security answers verified for password recovery",
		Outcome:       domain.OutcomeSuccess,
		ClientAddress: clientAddr,
	})
	if err != nil {
		return nil, err
	}

	now := s.store.Now()
	sess.Recovery = &domain.RecoveryMarker{
		UserID:     c.ID,
		Identity:   identity,
		VerifiedAt: now,
		ExpiresAt:  now.Add(s.cfg.MarkerTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		sess.Recovery = nil
		return nil, err
	}
	return challenge, nil
}

// PresentReset returns the identity and current questions for the reset
// form. It is reachable only with a valid recovery marker.
func (s *RecoveryService) PresentReset(ctx context.Context, sess *domain.Session, clientAddr string) (*RecoveryChallenge, error) {
	marker, err := s.requireMarker(ctx, sess, "reset form", clientAddr)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Get(ctx, marker.UserID)
	if err != nil {
		return nil, err
	}
	return &RecoveryChallenge{
		Identity:     marker.Identity,
		Questions:    c.Questions(),
		Requirements: s.store.Policy().GetRequirements(),
	}, nil
}

// Reset installs a new secret and security answers. On failure the marker is
// kept so the user can resubmit; on success it is cleared.
func (s *RecoveryService) Reset(ctx context.Context, sess *domain.Session, req ResetRequest, clientAddr string) error {
	marker, err := s.requireMarker(ctx, sess, "password reset", clientAddr)
	if err != nil {
		return err
	}

	if req.Password != req.Confirm {
		s.auditResetRejected(ctx, marker, domain.ErrConfirmationMismatch, clientAddr)
		return domain.ErrConfirmationMismatch
	}

	if err := s.store.ResetSecret(ctx, marker.UserID, req.Password, req.Answers); err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			s.auditResetRejected(ctx, marker, err, clientAddr)
		}
		return err
	}

	sess.Recovery = nil
	if err := s.sessions.Save(ctx, sess); err != nil {
		return err
	}

	userID := marker.UserID
	return s.auditor.Record(ctx, domain.AuditRecord{
		ActorID:       &userID,
		ActorLabel:    marker.Identity,
		EventKind:     domain.EventChangePassword,
		Description:   "password and security answers reset through recovery",
		Outcome:       domain.OutcomeSuccess,
		ClientAddress: clientAddr,
	})
}

func (s *RecoveryService) requireMarker(ctx context.Context, sess *domain.Session, step, clientAddr string) (*domain.RecoveryMarker, error) {
	now := s.store.Now()
	if sess != nil && sess.Recovery.ValidAt(now) {
		return sess.Recovery, nil
	}

	rec := domain.AuditRecord{
		ActorLabel:    "anonymous",
		EventKind:     domain.EventAccessDenied,
		Description:   fmt.Sprintf("%s requested without a verified recovery session", step),
		Outcome:       domain.OutcomeFail,
		ClientAddress: clientAddr,
	}
	if sess != nil && sess.Recovery != nil {
		// Expired marker: drop it so the flow restarts.
		userID := sess.Recovery.UserID
		rec.ActorID = &userID
		rec.ActorLabel = sess.Recovery.Identity
		rec.Description = fmt.Sprintf("%s requested after the recovery session expired", step)
		sess.Recovery = nil
		if err := s.sessions.Save(ctx, sess); err != nil {
			s.logger.Warn("failed to clear expired recovery marker", "error", err)
		}
	}
	s.auditDenial(ctx, rec)
	return nil, domain.ErrRecoverySessionExpired
}

func (s *RecoveryService) auditResetRejected(ctx context.Context, marker *domain.RecoveryMarker, reason error, clientAddr string) {
	userID := marker.UserID
	s.auditDenial(ctx, domain.AuditRecord{
		ActorID:       &userID,
		ActorLabel:    marker.Identity,
		EventKind:     domain.EventValidationFail,
		Description:   "password reset rejected: " + reason.Error(),
		Outcome:       domain.OutcomeFail,
		ClientAddress: clientAddr,
	})
}

func (s *RecoveryService) auditDenial(ctx context.Context, rec domain.AuditRecord) {
	if err := s.auditor.Record(ctx, rec); err != nil {
		s.logger.Error("audit failed on recovery denial", "event", rec.EventKind, "error", err)
	}
}

func labelOrAnonymous(identity string) string {
	if identity == "" {
		return "anonymous"
	}
	return identity
}

var decoyQuestionPool = []string{
	"What was the name of your first pet?",
	"In what city were you born?",
	"What is your mother's maiden name?",
	"What was the make of your first car?",
	"What was the name of your elementary school?",
	"What is your favorite book?",
	"What street did you grow up on?",
	"What was your childhood nickname?",
}

// DecoyQuestions returns two distinct questions derived from identity, so
// repeated requests for the same unknown identity look stable.
func DecoyQuestions(identity string) [2]string {
	sum := sha256.Sum256([]byte(identity))
	n := uint64(len(decoyQuestionPool))
	first := binary.BigEndian.Uint64(sum[0:8]) % n
	second := binary.BigEndian.Uint64(sum[8:16]) % (n - 1)
	if second >= first {
		second++
	}
	return [2]string{decoyQuestionPool[first], decoyQuestionPool[second]}
}
