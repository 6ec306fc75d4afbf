package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// Defaults for the credential store.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = time.Minute
	DefaultMinSecretAge     = 24 * time.Hour
	DefaultStoreTimeout     = 3 * time.Second
)

// CredentialRepository persists credentials. Implementations must make
// RecordFailedAttempt a single atomic conditional update and UpdateSecret a
// compare-and-swap on the expected hash.
type CredentialRepository interface {
	Create(ctx context.Context, c *domain.Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error)
	GetByIdentity(ctx context.Context, identity string) (*domain.Credential, error)
	List(ctx context.Context, limit int) ([]*domain.Credential, error)
	RecordFailedAttempt(ctx context.Context, id uuid.UUID, now time.Time, threshold int, lockUntil time.Time) (domain.LockState, error)
	RecordSuccess(ctx context.Context, id uuid.UUID, now time.Time) (*time.Time, error)
	UpdateSecret(ctx context.Context, u domain.SecretUpdate) error
	UpdateSecurityQuestions(ctx context.Context, id uuid.UUID, questions [2]domain.SecurityQuestion, now time.Time) error
}

// StoreConfig holds credential store settings.
type StoreConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	MinSecretAge     time.Duration
	Timeout          time.Duration
}

// SecurityAnswer is a question with a plaintext answer. A blank answer means
// "keep the stored answer" when updating.
type SecurityAnswer struct {
	Question string
	Answer   string
}

// CredentialStore enforces the credential invariants on top of a repository:
// lockout, secret age, reuse prevention and history retention.
type CredentialStore struct {
	repo   CredentialRepository
	policy *PasswordPolicy
	hasher *Hasher
	cfg    StoreConfig
	now    func() time.Time
}

// NewCredentialStore creates a credential store.
func NewCredentialStore(repo CredentialRepository, policy *PasswordPolicy, hasher *Hasher, cfg StoreConfig) *CredentialStore {
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = DefaultLockoutThreshold
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	if cfg.MinSecretAge < 0 {
		cfg.MinSecretAge = DefaultMinSecretAge
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultStoreTimeout
	}
	if hasher == nil {
		hasher = DefaultHasher
	}
	if policy == nil {
		policy = &PasswordPolicy{}
	}
	return &CredentialStore{repo: repo, policy: policy, hasher: hasher, cfg: cfg, now: time.Now}
}

// WithClock overrides the store clock.
func (s *CredentialStore) WithClock(now func() time.Time) *CredentialStore {
	s.now = now
	return s
}

// Now returns the store's current time.
func (s *CredentialStore) Now() time.Time {
	return s.now()
}

// Policy returns the password policy in force.
func (s *CredentialStore) Policy() *PasswordPolicy {
	return s.policy
}

// Lookup finds an account by email or handle.
func (s *CredentialStore) Lookup(ctx context.Context, identity string) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	c, err := s.repo.GetByIdentity(ctx, NormalizeIdentity(identity))
	return c, s.wrap(err)
}

// Get finds an account by ID.
func (s *CredentialStore) Get(ctx context.Context, id uuid.UUID) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	c, err := s.repo.GetByID(ctx, id)
	return c, s.wrap(err)
}

// List returns up to limit accounts.
func (s *CredentialStore) List(ctx context.Context, limit int) ([]*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.repo.List(ctx, limit)
	return out, s.wrap(err)
}

// Create inserts a fully built credential.
func (s *CredentialStore) Create(ctx context.Context, c *domain.Credential) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	return s.wrap(s.repo.Create(ctx, c))
}

// VerifySecret compares plaintext to the current secret in constant time.
func (s *CredentialStore) VerifySecret(c *domain.Credential, plaintext string) bool {
	return s.hasher.Verify(plaintext, c.SecretHash)
}

// RecordFailedAttempt counts a wrong secret and locks the account when the
// threshold is reached.
func (s *CredentialStore) RecordFailedAttempt(ctx context.Context, id uuid.UUID) (domain.LockState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	now := s.now()
	state, err := s.repo.RecordFailedAttempt(ctx, id, now, s.cfg.LockoutThreshold, now.Add(s.cfg.LockoutDuration))
	return state, s.wrap(err)
}

// AttemptsRemaining returns how many wrong secrets are left before a lock.
func (s *CredentialStore) AttemptsRemaining(state domain.LockState) int {
	remaining := s.cfg.LockoutThreshold - state.FailedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordSuccess resets the counters and returns the previous login time.
func (s *CredentialStore) RecordSuccess(ctx context.Context, id uuid.UUID) (*time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	prev, err := s.repo.RecordSuccess(ctx, id, s.now())
	return prev, s.wrap(err)
}

// ChangeSecret installs a new secret. It fails with a *domain.PolicyError,
// domain.ErrSecretTooYoung or domain.ErrSecretReused, checked in that order.
func (s *CredentialStore) ChangeSecret(ctx context.Context, id uuid.UUID, plaintext string) error {
	return s.changeSecret(ctx, id, plaintext, nil)
}

// ResetSecret installs a new secret and new security answers in one update.
// The answers are validated before anything is written.
func (s *CredentialStore) ResetSecret(ctx context.Context, id uuid.UUID, plaintext string, answers [2]SecurityAnswer) error {
	if err := validateQuestions(answers); err != nil {
		return err
	}
	return s.changeSecret(ctx, id, plaintext, &answers)
}

func (s *CredentialStore) changeSecret(ctx context.Context, id uuid.UUID, plaintext string, answers *[2]SecurityAnswer) error {
	if err := s.policy.Evaluate(plaintext).Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.wrap(err)
	}

	now := s.now()
	if now.Sub(c.SecretUpdatedAt) < s.cfg.MinSecretAge {
		return domain.ErrSecretTooYoung
	}
	if s.isReused(c, plaintext) {
		return domain.ErrSecretReused
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}

	history := c.SecretHistory
	history.Push(c.SecretHash)

	update := domain.SecretUpdate{
		ID:           c.ID,
		ExpectedHash: c.SecretHash,
		NewHash:      hash,
		History:      history,
		UpdatedAt:    now,
	}
	if answers != nil {
		questions, err := s.mergeAnswers(c, *answers)
		if err != nil {
			return err
		}
		update.Questions = &questions
	}

	return s.wrap(s.repo.UpdateSecret(ctx, update))
}

func (s *CredentialStore) isReused(c *domain.Credential, plaintext string) bool {
	if s.hasher.Verify(plaintext, c.SecretHash) {
		return true
	}
	return c.SecretHistory.Any(func(hash string) bool {
		return s.hasher.Verify(plaintext, hash)
	})
}

// SetSecurityAnswers replaces both question texts. A non-blank answer is
// re-hashed; a blank answer keeps the stored hash for that slot.
func (s *CredentialStore) SetSecurityAnswers(ctx context.Context, id uuid.UUID, answers [2]SecurityAnswer) error {
	if err := validateQuestions(answers); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.wrap(err)
	}
	questions, err := s.mergeAnswers(c, answers)
	if err != nil {
		return err
	}
	return s.wrap(s.repo.UpdateSecurityQuestions(ctx, id, questions, s.now()))
}

// VerifyAnswers reports whether both answers match. Both slots are always
// checked.
func (s *CredentialStore) VerifyAnswers(c *domain.Credential, answers [2]string) bool {
	ok := true
	for i := range answers {
		normalized := NormalizeAnswer(answers[i])
		match := normalized != "" && s.hasher.Verify(normalized, c.SecurityQuestions[i].AnswerHash)
		ok = ok && match
	}
	return ok
}

// HashAnswers builds both question slots from plaintext answers. Both
// answers are required.
func (s *CredentialStore) HashAnswers(answers [2]SecurityAnswer) ([2]domain.SecurityQuestion, error) {
	var out [2]domain.SecurityQuestion
	if err := validateQuestions(answers); err != nil {
		return out, err
	}
	for i, a := range answers {
		normalized := NormalizeAnswer(a.Answer)
		if normalized == "" {
			return out, fmt.Errorf("%w: answer %d is required", domain.ErrInvalidSecurityQuestion, i+1)
		}
		hash, err := s.hasher.Hash(normalized)
		if err != nil {
			return out, fmt.Errorf("hash answer: %w", err)
		}
		out[i] = domain.SecurityQuestion{Question: strings.TrimSpace(a.Question), AnswerHash: hash}
	}
	return out, nil
}

// HashSecret hashes an initial secret after checking it against the policy.
func (s *CredentialStore) HashSecret(plaintext string) (string, error) {
	if err := s.policy.Evaluate(plaintext).Err(); err != nil {
		return "", err
	}
	return s.hasher.Hash(plaintext)
}

func (s *CredentialStore) mergeAnswers(c *domain.Credential, answers [2]SecurityAnswer) ([2]domain.SecurityQuestion, error) {
	out := c.SecurityQuestions
	for i, a := range answers {
		out[i].Question = strings.TrimSpace(a.Question)
		normalized := NormalizeAnswer(a.Answer)
		if normalized == "" {
			continue
		}
		hash, err := s.hasher.Hash(normalized)
		if err != nil {
			return out, fmt.Errorf("hash answer: %w", err)
		}
		out[i].AnswerHash = hash
	}
	return out, nil
}

func validateQuestions(answers [2]SecurityAnswer) error {
	for i, a := range answers {
		if strings.TrimSpace(a.Question) == "" {
			return fmt.Errorf("%w: question %d", domain.ErrInvalidSecurityQuestion, i+1)
		}
	}
	return nil
}

// passthroughErrors are repository results that carry domain meaning.
var passthroughErrors = []error{
	domain.ErrUnknownIdentity,
	domain.ErrSecretConflict,
	domain.ErrUserAlreadyExists,
	domain.ErrHandleAlreadyTaken,
}

// wrap maps infrastructure failures, including timeouts, to
// domain.ErrStoreUnavailable.
func (s *CredentialStore) wrap(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range passthroughErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
