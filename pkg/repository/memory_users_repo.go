package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// MemoryUsersRepository keeps credentials in process memory. Every mutator
// runs under one mutex, which gives the same atomicity as the conditional
// updates of UsersRepository.
type MemoryUsersRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.Credential
}

// NewMemoryUsersRepository creates an empty in-memory repository.
func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{users: make(map[uuid.UUID]*domain.Credential)}
}

// Create inserts a new account.
func (r *MemoryUsersRepository) Create(ctx context.Context, c *domain.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, c.Email) {
			return domain.ErrUserAlreadyExists
		}
		if c.Handle != nil && existing.Handle != nil && *existing.Handle == *c.Handle {
			return domain.ErrHandleAlreadyTaken
		}
	}
	if _, ok := r.users[c.ID]; ok {
		return domain.ErrUserAlreadyExists
	}
	r.users[c.ID] = cloneCredential(c)
	return nil
}

// GetByID retrieves an account by ID.
func (r *MemoryUsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUnknownIdentity
	}
	return cloneCredential(c), nil
}

// GetByIdentity retrieves an account by email (case-insensitive) or handle (exact).
func (r *MemoryUsersRepository) GetByIdentity(ctx context.Context, identity string) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	identity = strings.TrimSpace(identity)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.users {
		if strings.EqualFold(c.Email, identity) || (c.Handle != nil && *c.Handle == identity) {
			return cloneCredential(c), nil
		}
	}
	return nil, domain.ErrUnknownIdentity
}

// List returns accounts ordered by creation time.
func (r *MemoryUsersRepository) List(ctx context.Context, limit int) ([]*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := make([]*domain.Credential, 0, len(r.users))
	for _, c := range r.users {
		out = append(out, cloneCredential(c))
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordFailedAttempt increments the counter and locks at threshold.
// A currently locked account is left untouched.
func (r *MemoryUsersRepository) RecordFailedAttempt(ctx context.Context, id uuid.UUID, now time.Time, threshold int, lockUntil time.Time) (domain.LockState, error) {
	if err := ctx.Err(); err != nil {
		return domain.LockState{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.users[id]
	if !ok {
		return domain.LockState{}, domain.ErrUnknownIdentity
	}
	if c.IsLockedAt(now) {
		return domain.LockState{FailedAttempts: c.FailedAttempts, LockedUntil: timePtr(*c.LockedUntil)}, nil
	}

	c.LastAttemptAt = timePtr(now)
	c.UpdatedAt = now
	if c.FailedAttempts+1 >= threshold {
		c.FailedAttempts = 0
		c.LockedUntil = timePtr(lockUntil)
		return domain.LockState{LockedUntil: timePtr(lockUntil), NewlyLocked: lockUntil.After(now)}, nil
	}
	c.FailedAttempts++

	state := domain.LockState{FailedAttempts: c.FailedAttempts}
	if c.LockedUntil != nil {
		state.LockedUntil = timePtr(*c.LockedUntil)
	}
	return state, nil
}

// RecordSuccess clears the counter and lock and returns the previous login time.
func (r *MemoryUsersRepository) RecordSuccess(ctx context.Context, id uuid.UUID, now time.Time) (*time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUnknownIdentity
	}
	prev := c.LastLoginAt
	c.FailedAttempts = 0
	c.LockedUntil = nil
	c.LastLoginAt = timePtr(now)
	c.LastAttemptAt = timePtr(now)
	c.UpdatedAt = now
	return prev, nil
}

// UpdateSecret swaps the secret hash if the stored hash equals u.ExpectedHash.
func (r *MemoryUsersRepository) UpdateSecret(ctx context.Context, u domain.SecretUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.users[u.ID]
	if !ok {
		return domain.ErrUnknownIdentity
	}
	if c.SecretHash != u.ExpectedHash {
		return domain.ErrSecretConflict
	}
	c.SecretHash = u.NewHash
	c.SecretHistory = u.History
	c.SecretUpdatedAt = u.UpdatedAt
	c.UpdatedAt = u.UpdatedAt
	if u.Questions != nil {
		c.SecurityQuestions = *u.Questions
	}
	return nil
}

// UpdateSecurityQuestions replaces both question slots.
func (r *MemoryUsersRepository) UpdateSecurityQuestions(ctx context.Context, id uuid.UUID, questions [2]domain.SecurityQuestion, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.users[id]
	if !ok {
		return domain.ErrUnknownIdentity
	}
	c.SecurityQuestions = questions
	c.UpdatedAt = now
	return nil
}

func cloneCredential(c *domain.Credential) *domain.Credential {
	out := *c
	out.Handle = clonePtr(c.Handle)
	out.BrandName = clonePtr(c.BrandName)
	out.LockedUntil = clonePtr(c.LockedUntil)
	out.LastLoginAt = clonePtr(c.LastLoginAt)
	out.LastAttemptAt = clonePtr(c.LastAttemptAt)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
