package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCredential_IsLockedAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-1 * time.Second)
	future := now.Add(30 * time.Second)

	tests := []struct {
		name          string
		lockedUntil   *time.Time
		want          bool
		wantRemaining time.Duration
	}{
		{
			name:        "not locked (nil)",
			lockedUntil: nil,
			want:        false,
		},
		{
			name:          "locked (future time)",
			lockedUntil:   &future,
			want:          true,
			wantRemaining: 30 * time.Second,
		},
		{
			name:        "not locked (past time)",
			lockedUntil: &past,
			want:        false,
		},
		{
			name:        "not locked (exactly now)",
			lockedUntil: &now,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{
				ID:          uuid.New(),
				Email:       "alice@example.com",
				LockedUntil: tt.lockedUntil,
			}

			if got := c.IsLockedAt(now); got != tt.want {
				t.Errorf("IsLockedAt() = %v, want %v", got, tt.want)
			}
			if got := c.LockRemaining(now); got != tt.wantRemaining {
				t.Errorf("LockRemaining() = %v, want %v", got, tt.wantRemaining)
			}
		})
	}
}

func TestCredential_Profile(t *testing.T) {
	brand := "Glow Co"
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		role      Role
		wantBrand string
	}{
		{name: "vendor carries brand", role: RoleVendor, wantBrand: brand},
		{name: "employee drops brand", role: RoleEmployee, wantBrand: ""},
		{name: "admin drops brand", role: RoleAdmin, wantBrand: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{
				ID:        uuid.New(),
				Email:     "v@example.com",
				FullName:  "Val Vendor",
				BrandName: &brand,
				Role:      tt.role,
				CreatedAt: created,
			}
			p := c.Profile()
			if p.BrandName != tt.wantBrand {
				t.Errorf("BrandName = %q, want %q", p.BrandName, tt.wantBrand)
			}
			if p.Role != tt.role {
				t.Errorf("Role = %v, want %v", p.Role, tt.role)
			}
			if !p.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, created)
			}
		})
	}
}

func TestCredential_Label(t *testing.T) {
	handle := "alice01"
	if got := (&Credential{Email: "a@example.com", Handle: &handle}).Label(); got != "a@example.com" {
		t.Errorf("Label() = %q, want email", got)
	}
	if got := (&Credential{Handle: &handle}).Label(); got != handle {
		t.Errorf("Label() = %q, want handle", got)
	}
}

func TestRole_ParseAndString(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: "Vendor", want: RoleVendor},
		{in: " employee ", want: RoleEmployee},
		{in: "superuser", want: RoleUnknown, wantErr: true},
		{in: "", want: RoleUnknown, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if RoleUnknown.String() != "unknown" {
		t.Errorf("RoleUnknown.String() = %q", RoleUnknown.String())
	}
	if Role(42).Valid() {
		t.Error("Role(42) should not be valid")
	}
}

func TestRole_UnmarshalTextCorrupt(t *testing.T) {
	var r Role = RoleAdmin
	if err := r.UnmarshalText([]byte("root")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if r != RoleUnknown {
		t.Errorf("corrupt role decoded to %v, want RoleUnknown", r)
	}
}

func TestRole_LandingPath(t *testing.T) {
	tests := map[Role]string{
		RoleAdmin:    "/admin/manage_users",
		RoleVendor:   "/vendor/product_dashboard",
		RoleEmployee: "/user/manage_products",
		RoleUnknown:  "/login",
	}
	for role, want := range tests {
		if got := role.LandingPath(); got != want {
			t.Errorf("%v.LandingPath() = %q, want %q", role, got, want)
		}
	}
}

func TestRoleSet_Contains(t *testing.T) {
	set := Roles(RoleAdmin, RoleEmployee)

	if !set.Contains(RoleAdmin) || !set.Contains(RoleEmployee) {
		t.Error("set should contain admin and employee")
	}
	if set.Contains(RoleVendor) {
		t.Error("set should not contain vendor")
	}
	if AllRoles.Contains(RoleUnknown) {
		t.Error("RoleUnknown must never be contained")
	}
	if Roles(RoleUnknown, Role(9)) != 0 {
		t.Error("invalid roles should be ignored")
	}
	if got := set.String(); got != "admin,employee" {
		t.Errorf("String() = %q", got)
	}
}

func TestSecretHistory_Push(t *testing.T) {
	var h SecretHistory
	for _, hash := range []string{"h1", "h2", "h3", "h4", "h5"} {
		h.Push(hash)
	}
	if h.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", h.Len())
	}

	// A sixth push evicts the oldest.
	h.Push("h6")
	got := h.Hashes()
	want := []string{"h6", "h5", "h4", "h3", "h2"}
	if len(got) != len(want) {
		t.Fatalf("Hashes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Hashes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if h.Any(func(s string) bool { return s == "h1" }) {
		t.Error("h1 should have been evicted")
	}
	if !h.Any(func(s string) bool { return s == "h2" }) {
		t.Error("h2 should still be retained")
	}
}

func TestNewSecretHistory(t *testing.T) {
	h := NewSecretHistory([]string{"a", "b", "c", "d", "e", "f", "g"})
	got := h.Hashes()
	want := []string{"a", "b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("Hashes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Hashes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	empty := NewSecretHistory(nil)
	if empty.Len() != 0 || len(empty.Hashes()) != 0 {
		t.Error("empty history should have no entries")
	}
}

func TestSession_States(t *testing.T) {
	now := time.Now()
	var nilSession *Session
	if nilSession.Authenticated() {
		t.Error("nil session should not be authenticated")
	}

	id := uuid.New()
	s := &Session{ID: "s1", UserID: &id, ExpiresAt: now.Add(time.Minute)}
	if !s.Authenticated() || !s.IsValidAt(now) {
		t.Error("session should be authenticated and valid")
	}
	if s.IsValidAt(now.Add(2 * time.Minute)) {
		t.Error("session should be expired")
	}

	var m *RecoveryMarker
	if m.ValidAt(now) {
		t.Error("nil marker should be invalid")
	}
	m = &RecoveryMarker{ExpiresAt: now.Add(10 * time.Minute)}
	if !m.ValidAt(now) || m.ValidAt(now.Add(11*time.Minute)) {
		t.Error("marker validity window is wrong")
	}
}

func TestErrorWrappers(t *testing.T) {
	var err error = &LockedError{Remaining: 59500 * time.Millisecond}
	if !errors.Is(err, ErrAccountLocked) {
		t.Error("LockedError should match ErrAccountLocked")
	}
	var locked *LockedError
	if !errors.As(err, &locked) || locked.RemainingSeconds() != 60 {
		t.Errorf("RemainingSeconds() should round up to 60")
	}

	err = &PolicyError{Violations: []string{"too short"}}
	if !errors.Is(err, ErrPolicyViolation) {
		t.Error("PolicyError should match ErrPolicyViolation")
	}

	err = &AccessDeniedError{Role: RoleVendor, Resource: "/admin/users"}
	if !errors.Is(err, ErrAccessDenied) {
		t.Error("AccessDeniedError should match ErrAccessDenied")
	}
}

func TestCeilSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{60 * time.Second, 60},
		{60*time.Second + 1, 61},
	}
	for _, tt := range tests {
		if got := CeilSeconds(tt.in); got != tt.want {
			t.Errorf("CeilSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
