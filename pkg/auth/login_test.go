package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/audit"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

const testClient = "203.0.113.7"

func TestLoginService_LockoutScenario(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice@example.com", "Str0ng!Pass", domain.RoleEmployee)
	login := NewLoginService(env.store, env.recorder, nil)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := login.Attempt(ctx, "alice@example.com", "wrong", testClient)
		if !errors.Is(err, domain.ErrWrongSecret) {
			t.Fatalf("attempt %d: error = %v, want ErrWrongSecret", i, err)
		}
	}

	_, err := login.Attempt(ctx, "alice@example.com", "wrong", testClient)
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("fifth attempt error = %v, want LockedError", err)
	}
	if locked.RemainingSeconds() != 60 {
		t.Errorf("RemainingSeconds() = %d, want 60", locked.RemainingSeconds())
	}

	// The correct secret is refused while locked.
	env.clock.Advance(30 * time.Second)
	_, err = login.Attempt(ctx, "alice@example.com", "Str0ng!Pass", testClient)
	if !errors.As(err, &locked) {
		t.Fatalf("locked attempt error = %v, want LockedError", err)
	}
	if locked.RemainingSeconds() != 30 {
		t.Errorf("RemainingSeconds() = %d, want 30", locked.RemainingSeconds())
	}

	env.clock.Advance(31 * time.Second)
	res, err := login.Attempt(ctx, "alice@example.com", "Str0ng!Pass", testClient)
	if err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	if res.Role != domain.RoleEmployee || res.LandingPath != "/user/manage_products" {
		t.Errorf("result = %+v", res)
	}

	want := []domain.AuditEventKind{
		domain.EventLoginFailure, domain.EventLoginFailure, domain.EventLoginFailure,
		domain.EventLoginFailure, domain.EventLoginFailure,
		domain.EventAccessDenied,
		domain.EventLogin,
	}
	got := env.kinds()
	if len(got) != len(want) {
		t.Fatalf("audit kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("audit[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	recs := env.sink.Records()
	if !strings.Contains(recs[0].Description, "4 attempts remaining") {
		t.Errorf("first failure description = %q", recs[0].Description)
	}
	if !strings.Contains(recs[4].Description, "locked for 60 seconds") {
		t.Errorf("lockout description = %q", recs[4].Description)
	}
	for _, r := range recs {
		if r.ClientAddress != testClient {
			t.Errorf("%s record missing client address", r.EventKind)
		}
	}
}

func TestLoginService_UnknownIdentity(t *testing.T) {
	env := newTestEnv(t)
	login := NewLoginService(env.store, env.recorder, nil)

	_, err := login.Attempt(context.Background(), "Ghost@Example.com", "whatever", testClient)
	if !errors.Is(err, domain.ErrUnknownIdentity) {
		t.Fatalf("error = %v, want ErrUnknownIdentity", err)
	}

	rec := env.lastRecord(t)
	if rec.EventKind != domain.EventLoginFailure {
		t.Errorf("EventKind = %s", rec.EventKind)
	}
	if rec.ActorID != nil {
		t.Error("unknown identity must be audited anonymously")
	}
	if rec.ActorLabel != "ghost@example.com" {
		t.Errorf("ActorLabel = %q", rec.ActorLabel)
	}
}

func TestLoginService_SuccessReturnsPreviousLogin(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seed(t, "val@example.com", "Str0ng!Pass", domain.RoleVendor)
	login := NewLoginService(env.store, env.recorder, nil)
	ctx := context.Background()

	first, err := login.Attempt(ctx, "val@example.com", "Str0ng!Pass", testClient)
	if err != nil {
		t.Fatal(err)
	}
	if first.LastLoginAt != nil {
		t.Errorf("first LastLoginAt = %v, want nil", first.LastLoginAt)
	}
	firstAt := env.clock.Now()

	env.clock.Advance(2 * time.Hour)
	second, err := login.Attempt(ctx, "val@example.com", "Str0ng!Pass", testClient)
	if err != nil {
		t.Fatal(err)
	}
	if second.LastLoginAt == nil || !second.LastLoginAt.Equal(firstAt) {
		t.Errorf("LastLoginAt = %v, want %v", second.LastLoginAt, firstAt)
	}
	if second.Profile.ID != vendor.ID || second.LandingPath != "/vendor/product_dashboard" {
		t.Errorf("result = %+v", second)
	}
}

func TestLoginService_SuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seed(t, "alice@example.com", "Str0ng!Pass", domain.RoleAdmin)
	login := NewLoginService(env.store, env.recorder, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = login.Attempt(ctx, "alice@example.com", "nope", testClient)
	}
	if _, err := login.Attempt(ctx, "alice@example.com", "Str0ng!Pass", testClient); err != nil {
		t.Fatal(err)
	}
	c, _ := env.store.Get(ctx, alice.ID)
	if c.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", c.FailedAttempts)
	}
}

func TestLoginService_UnknownRoleRefused(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "corrupt@example.com", "Str0ng!Pass", domain.RoleUnknown)
	login := NewLoginService(env.store, env.recorder, nil)

	_, err := login.Attempt(context.Background(), "corrupt@example.com", "Str0ng!Pass", testClient)
	if !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("error = %v, want ErrAccessDenied", err)
	}
	if rec := env.lastRecord(t); rec.EventKind != domain.EventAccessDenied {
		t.Errorf("EventKind = %s, want access_denied", rec.EventKind)
	}
}

func TestLoginService_AuditFailureFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice@example.com", "Str0ng!Pass", domain.RoleEmployee)
	recorder := audit.NewRecorder(failingSink{}, nil, time.Second)
	login := NewLoginService(env.store, recorder, nil)
	ctx := context.Background()

	_, err := login.Attempt(ctx, "alice@example.com", "Str0ng!Pass", testClient)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}

	// Denials still deny when the audit trail is down.
	_, err = login.Attempt(ctx, "alice@example.com", "bad", testClient)
	if !errors.Is(err, domain.ErrWrongSecret) {
		t.Errorf("error = %v, want ErrWrongSecret", err)
	}
}

func TestLoginService_Logout(t *testing.T) {
	env := newTestEnv(t)
	login := NewLoginService(env.store, env.recorder, nil)
	ctx := context.Background()

	login.Logout(ctx, &domain.Session{ID: "anon"}, testClient)
	if len(env.kinds()) != 0 {
		t.Fatalf("anonymous logout should not be audited, got %v", env.kinds())
	}

	c := env.seed(t, "bob@example.com", "Str0ng!Pass", domain.RoleVendor)
	login.Logout(ctx, &domain.Session{ID: "s1", UserID: &c.ID, Identity: c.Email, Role: c.Role}, testClient)

	rec := env.lastRecord(t)
	if rec.EventKind != domain.EventLogout || *rec.ActorID != c.ID {
		t.Errorf("last record = %+v, want logout by %s", rec, c.ID)
	}
}
