package auth

import (
	"strings"
	"testing"
)

// testHasher keeps argon2 cheap in tests; production uses DefaultHasher.
var testHasher = &Hasher{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32}

func TestArgon2Parameters(t *testing.T) {
	// Verify that Argon2 parameters are set correctly (OWASP recommended)
	if argon2Time != 1 {
		t.Errorf("argon2Time = %d, want 1", argon2Time)
	}
	if argon2Memory != 64*1024 {
		t.Errorf("argon2Memory = %d, want %d", argon2Memory, 64*1024)
	}
	if argon2Threads != 4 {
		t.Errorf("argon2Threads = %d, want 4", argon2Threads)
	}
	if argon2KeyLen != 32 {
		t.Errorf("argon2KeyLen = %d, want 32", argon2KeyLen)
	}
	if saltLen != 16 {
		t.Errorf("saltLen = %d, want 16", saltLen)
	}
}

func TestHashPassword_Format(t *testing.T) {
	hash, err := HashPassword("TestPassword123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("hash = %q, want PHC argon2id prefix", hash)
	}

	// Same input, fresh salt.
	other, _ := HashPassword("TestPassword123")
	if other == hash {
		t.Error("two hashes of the same password should differ")
	}
}

func TestPasswordHashing_CaseSensitive(t *testing.T) {
	password := "TestPassword123"

	hash, err := testHasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{
			name:     "exact match",
			password: "TestPassword123",
			want:     true,
		},
		{
			name:     "lowercase",
			password: "testpassword123",
			want:     false,
		},
		{
			name:     "uppercase",
			password: "TESTPASSWORD123",
			want:     false,
		},
		{
			name:     "mixed case different",
			password: "testPassword123",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testHasher.Verify(tt.password, hash)
			if got != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestPasswordStrength_EdgeCases(t *testing.T) {
	// Test that various password lengths and characters can be hashed
	tests := []struct {
		name     string
		password string
	}{
		{
			name:     "very short (1 char)",
			password: "a",
		},
		{
			name:     "empty string",
			password: "",
		},
		{
			name:     "special characters",
			password: "p@ssw0rd!#$%^&*()",
		},
		{
			name:     "unicode",
			password: "pässwörd123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := testHasher.Hash(tt.password)
			if err != nil {
				t.Errorf("Hash failed for %q: %v", tt.name, err)
				return
			}

			if !testHasher.Verify(tt.password, hash) {
				t.Errorf("Verify failed for %q", tt.name)
			}
		})
	}
}

func TestVerify_UsesEmbeddedParameters(t *testing.T) {
	// A hash made with other parameters still verifies with the default hasher.
	hash, err := testHasher.Hash("Blossom#2024")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword("Blossom#2024", hash) {
		t.Error("VerifyPassword should honour the parameters encoded in the hash")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	tests := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$",
	}
	for _, encoded := range tests {
		if testHasher.Verify("anything", encoded) {
			t.Errorf("Verify accepted malformed hash %q", encoded)
		}
	}
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  Fluffy ", want: "fluffy"},
		{in: "MANILA", want: "manila"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := NormalizeAnswer(tt.in); got != tt.want {
			t.Errorf("NormalizeAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
