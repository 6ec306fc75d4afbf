package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

type memorySession struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionsRepository keeps sessions in process memory. Sessions are
// stored encoded so callers never share mutable state with the store.
type MemorySessionsRepository struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemorySessionsRepository creates an empty in-memory session repository.
func NewMemorySessionsRepository() *MemorySessionsRepository {
	return &MemorySessionsRepository{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

// WithClock overrides the clock used for expiry.
func (r *MemorySessionsRepository) WithClock(now func() time.Time) *MemorySessionsRepository {
	r.now = now
	return r
}

// Save writes the session and sets its expiry.
func (r *MemorySessionsRepository) Save(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = memorySession{data: data, expiresAt: r.now().Add(ttl)}
	return nil
}

// Get loads a session by ID.
func (r *MemorySessionsRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if ok && !r.now().Before(entry.expiresAt) {
		delete(r.sessions, id)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	var s domain.Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

// Delete removes a session.
func (r *MemorySessionsRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}
