package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

func stringPtr(s string) *string {
	return &s
}

func newTestCredential(email string) *domain.Credential {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Credential{
		ID:              uuid.New(),
		Email:           email,
		FullName:        "Test User",
		Role:            domain.RoleEmployee,
		SecretHash:      "hash-0",
		SecretUpdatedAt: now,
		SecurityQuestions: [2]domain.SecurityQuestion{
			{Question: "Q1", AnswerHash: "a1"},
			{Question: "Q2", AnswerHash: "a2"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryUsersRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()

	c := newTestCredential("alice@example.com")
	c.Handle = stringPtr("alice01")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name     string
		identity string
		wantErr  error
	}{
		{name: "email exact", identity: "alice@example.com"},
		{name: "email different case", identity: "ALICE@Example.com"},
		{name: "email with spaces", identity: "  alice@example.com "},
		{name: "handle exact", identity: "alice01"},
		{name: "handle wrong case", identity: "ALICE01", wantErr: domain.ErrUnknownIdentity},
		{name: "unknown", identity: "bob@example.com", wantErr: domain.ErrUnknownIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByIdentity(ctx, tt.identity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetByIdentity(%q) error = %v, want %v", tt.identity, err, tt.wantErr)
			}
			if err == nil && got.ID != c.ID {
				t.Errorf("GetByIdentity(%q) returned %v, want %v", tt.identity, got.ID, c.ID)
			}
		})
	}

	dup := newTestCredential("Alice@example.com")
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("duplicate email: error = %v, want ErrUserAlreadyExists", err)
	}
	dupHandle := newTestCredential("other@example.com")
	dupHandle.Handle = stringPtr("alice01")
	if err := repo.Create(ctx, dupHandle); !errors.Is(err, domain.ErrHandleAlreadyTaken) {
		t.Errorf("duplicate handle: error = %v, want ErrHandleAlreadyTaken", err)
	}
}

func TestMemoryUsersRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()
	c := newTestCredential("copy@example.com")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetByID(ctx, c.ID)
	got.FailedAttempts = 99
	got.SecretHash = "tampered"

	again, _ := repo.GetByID(ctx, c.ID)
	if again.FailedAttempts != 0 || again.SecretHash != "hash-0" {
		t.Error("mutating a returned credential changed the stored copy")
	}
}

func TestMemoryUsersRepository_RecordFailedAttempt(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()
	c := newTestCredential("lock@example.com")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	lockUntil := now.Add(time.Minute)

	for i := 1; i <= 4; i++ {
		state, err := repo.RecordFailedAttempt(ctx, c.ID, now, 5, lockUntil)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if state.FailedAttempts != i || state.NewlyLocked {
			t.Fatalf("attempt %d: state = %+v", i, state)
		}
	}

	state, err := repo.RecordFailedAttempt(ctx, c.ID, now, 5, lockUntil)
	if err != nil {
		t.Fatal(err)
	}
	if !state.NewlyLocked || state.FailedAttempts != 0 || state.LockedUntil == nil || !state.LockedUntil.Equal(lockUntil) {
		t.Fatalf("fifth attempt: state = %+v, want newly locked with zeroed counter", state)
	}

	// While locked the counter does not move.
	state, err = repo.RecordFailedAttempt(ctx, c.ID, now.Add(10*time.Second), 5, now.Add(70*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if state.NewlyLocked || state.FailedAttempts != 0 || !state.LockedUntil.Equal(lockUntil) {
		t.Errorf("attempt while locked changed state: %+v", state)
	}

	// After expiry the counter starts again from one.
	later := now.Add(61 * time.Second)
	state, err = repo.RecordFailedAttempt(ctx, c.ID, later, 5, later.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if state.FailedAttempts != 1 || state.NewlyLocked {
		t.Errorf("attempt after expiry: state = %+v, want counter 1", state)
	}
}

func TestMemoryUsersRepository_RecordFailedAttemptConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()
	c := newTestCredential("race@example.com")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		locked int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := repo.RecordFailedAttempt(ctx, c.ID, now, 5, now.Add(time.Minute))
			if err != nil {
				t.Error(err)
				return
			}
			if state.NewlyLocked {
				mu.Lock()
				locked++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if locked != 1 {
		t.Errorf("NewlyLocked reported %d times, want exactly 1", locked)
	}
}

func TestMemoryUsersRepository_RecordSuccess(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()
	c := newTestCredential("ok@example.com")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	first := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	prev, err := repo.RecordSuccess(ctx, c.ID, first)
	if err != nil {
		t.Fatal(err)
	}
	if prev != nil {
		t.Errorf("first login previous = %v, want nil", prev)
	}

	second := first.Add(time.Hour)
	prev, err = repo.RecordSuccess(ctx, c.ID, second)
	if err != nil {
		t.Fatal(err)
	}
	if prev == nil || !prev.Equal(first) {
		t.Errorf("second login previous = %v, want %v", prev, first)
	}

	got, _ := repo.GetByID(ctx, c.ID)
	if got.FailedAttempts != 0 || got.LockedUntil != nil {
		t.Errorf("RecordSuccess did not clear counters: %+v", got)
	}
}

func TestMemoryUsersRepository_UpdateSecretCAS(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()
	c := newTestCredential("cas@example.com")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	history := domain.NewSecretHistory([]string{"hash-0"})
	err := repo.UpdateSecret(ctx, domain.SecretUpdate{
		ID: c.ID, ExpectedHash: "hash-0", NewHash: "hash-1", History: history, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("first UpdateSecret() error = %v", err)
	}

	// A second writer that read the old hash loses.
	err = repo.UpdateSecret(ctx, domain.SecretUpdate{
		ID: c.ID, ExpectedHash: "hash-0", NewHash: "hash-2", History: history, UpdatedAt: now,
	})
	if !errors.Is(err, domain.ErrSecretConflict) {
		t.Fatalf("stale UpdateSecret() error = %v, want ErrSecretConflict", err)
	}

	got, _ := repo.GetByID(ctx, c.ID)
	if got.SecretHash != "hash-1" {
		t.Errorf("SecretHash = %q, want hash-1", got.SecretHash)
	}
	if h := got.SecretHistory.Hashes(); len(h) != 1 || h[0] != "hash-0" {
		t.Errorf("history = %v, want [hash-0]", h)
	}
}

func TestMemoryUsersRepository_UpdateSecretWithQuestions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()
	c := newTestCredential("reset@example.com")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	qs := [2]domain.SecurityQuestion{{Question: "New Q1", AnswerHash: "n1"}, {Question: "New Q2", AnswerHash: "n2"}}
	err := repo.UpdateSecret(ctx, domain.SecretUpdate{
		ID: c.ID, ExpectedHash: "hash-0", NewHash: "hash-1", UpdatedAt: time.Now(), Questions: &qs,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByID(ctx, c.ID)
	if got.SecurityQuestions != qs {
		t.Errorf("SecurityQuestions = %+v, want %+v", got.SecurityQuestions, qs)
	}
}

func TestMemoryUsersRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsersRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		c := newTestCredential(email)
		c.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Email != "c@example.com" || got[1].Email != "a@example.com" {
		t.Errorf("List() returned wrong order or size")
	}
}

func TestMemoryUsersRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryUsersRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.GetByIdentity(ctx, "x@example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("GetByIdentity() error = %v, want context.Canceled", err)
	}
}

func TestMapUniqueViolation_PassThrough(t *testing.T) {
	sentinel := errors.New("boom")
	if got := mapUniqueViolation(sentinel); got != sentinel {
		t.Errorf("mapUniqueViolation() = %v, want original error", got)
	}
	if mapUniqueViolation(nil) != nil {
		t.Error("mapUniqueViolation(nil) should be nil")
	}
}
