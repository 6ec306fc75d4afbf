package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/audit"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/repository"
)

var testPolicy = &PasswordPolicy{
	MinLength:        8,
	RequireUppercase: true,
	RequireLowercase: true,
	RequireNumber:    true,
	RequireSpecial:   true,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	clock    *fakeClock
	repo     *repository.MemoryUsersRepository
	store    *CredentialStore
	sink     *audit.MemorySink
	recorder *audit.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	repo := repository.NewMemoryUsersRepository()
	store := NewCredentialStore(repo, testPolicy, testHasher, StoreConfig{
		LockoutThreshold: 5,
		LockoutDuration:  time.Minute,
		MinSecretAge:     24 * time.Hour,
		Timeout:          time.Second,
	}).WithClock(clock.Now)
	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(sink, nil, time.Second).WithClock(clock.Now)
	return &testEnv{clock: clock, repo: repo, store: store, sink: sink, recorder: recorder}
}

// seed creates an account whose secret is old enough to change.
func (e *testEnv) seed(t *testing.T, email, password string, role domain.Role) *domain.Credential {
	t.Helper()
	hash, err := testHasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	q1, _ := testHasher.Hash(NormalizeAnswer("Rex"))
	q2, _ := testHasher.Hash(NormalizeAnswer("Manila"))
	now := e.clock.Now()
	c := &domain.Credential{
		ID:              uuid.New(),
		Email:           email,
		FullName:        "Test User",
		Role:            role,
		SecretHash:      hash,
		SecretUpdatedAt: now.Add(-48 * time.Hour),
		SecurityQuestions: [2]domain.SecurityQuestion{
			{Question: "Name of your first pet?", AnswerHash: q1},
			{Question: "City you were born in?", AnswerHash: q2},
		},
		CreatedAt: now.Add(-72 * time.Hour),
		UpdatedAt: now.Add(-48 * time.Hour),
	}
	if err := e.repo.Create(context.Background(), c); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return c
}

func (e *testEnv) kinds() []domain.AuditEventKind {
	return e.sink.Kinds()
}

func (e *testEnv) lastRecord(t *testing.T) domain.AuditRecord {
	t.Helper()
	recs := e.sink.Records()
	if len(recs) == 0 {
		t.Fatal("no audit records written")
	}
	return recs[len(recs)-1]
}

// failingSink rejects every append.
type failingSink struct{}

func (failingSink) Append(context.Context, domain.AuditRecord) error {
	return context.DeadlineExceeded
}
