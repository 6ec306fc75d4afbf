package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

var errInvalidHash = errors.New("invalid argon2id hash")

// Hasher derives and checks argon2id hashes in PHC string format.
type Hasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultHasher uses the recommended parameters.
var DefaultHasher = &Hasher{
	Time:    argon2Time,
	Memory:  argon2Memory,
	Threads: argon2Threads,
	KeyLen:  argon2KeyLen,
}

// Hash hashes plaintext with a fresh random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(plaintext), salt, h.Time, h.Memory, h.Threads, h.KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return encodeArgon2Hash(hash, salt, h.Time, h.Memory, h.Threads), nil
}

// Verify reports whether plaintext matches encodedHash. The parameters
// embedded in the hash are used, so hashes from older settings still verify.
func (h *Hasher) Verify(plaintext, encodedHash string) bool {
	hash, salt, t, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(plaintext), salt, t, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	return DefaultHasher.Hash(password)
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	return DefaultHasher.Verify(password, encodedHash)
}

// NormalizeAnswer trims and lower-cases a security answer before hashing.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func randomBytes(b []byte) (int, error) {
	return io.ReadFull(rand.Reader, b)
}

func encodeArgon2Hash(hash, salt []byte, t, memory uint32, threads uint8) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, t, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func decodeArgon2Hash(encoded string) (hash, salt []byte, t, memory uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &t, &p); err != nil {
		return nil, nil, 0, 0, 0, errInvalidHash
	}
	if memory == 0 || t == 0 || p == 0 || p > 255 {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, 0, 0, 0, errInvalidHash
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, nil, 0, 0, 0, errInvalidHash
	}

	return hash, salt, t, memory, uint8(p), nil
}

func constantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
