package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

const (
	// DefaultSessionTTL is the absolute lifetime of a session.
	DefaultSessionTTL = 8 * time.Hour
)

// SessionStore persists sessions by ID.
type SessionStore interface {
	Save(ctx context.Context, s *domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionConfig holds session configuration.
type SessionConfig struct {
	TTL                time.Duration
	Secret             []byte
	Issuer             string
	Timeout            time.Duration
	FingerprintEnabled bool
}

// SessionClaims are carried in the session cookie. The cookie only names
// the session; all state lives server-side.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionService issues, loads and destroys sessions.
type SessionService struct {
	config SessionConfig
	store  SessionStore
	now    func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, store SessionStore) *SessionService {
	if config.TTL <= 0 {
		config.TTL = DefaultSessionTTL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultStoreTimeout
	}
	return &SessionService{config: config, store: store, now: time.Now}
}

// WithClock overrides the session clock.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// TTL returns the session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.config.TTL
}

// New returns a fresh anonymous session. It is not persisted until Save.
func (s *SessionService) New(r *http.Request) *domain.Session {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	}
	if s.config.FingerprintEnabled && r != nil {
		sess.Fingerprint = GenerateFingerprint(r).Hash
	}
	return sess
}

// Token signs the cookie value naming sess.
func (s *SessionService) Token(sess *domain.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// ParseToken validates a cookie value and returns the session ID.
func (s *SessionService) ParseToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	}, opts...)
	if err != nil {
		return "", domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.ID, nil
}

// Load resolves a cookie value to its stored session. A session bound to a
// different client fingerprint is destroyed and reported as invalid.
func (s *SessionService) Load(ctx context.Context, tokenString string, r *http.Request) (*domain.Session, error) {
	id, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.wrap(err)
	}
	if !sess.IsValidAt(s.now()) {
		_ = s.store.Delete(ctx, id)
		return nil, domain.ErrSessionNotFound
	}
	if s.config.FingerprintEnabled && sess.Fingerprint != "" && r != nil {
		if GenerateFingerprint(r).Hash != sess.Fingerprint {
			_ = s.store.Delete(ctx, id)
			return nil, domain.ErrInvalidToken
		}
	}
	return sess, nil
}

// Save persists sess until its expiry.
func (s *SessionService) Save(ctx context.Context, sess *domain.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return domain.ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	return s.wrap(s.store.Save(ctx, sess, ttl))
}

// Establish binds an authenticated user to a new session ID and discards
// prev. Any recovery marker in prev is dropped.
func (s *SessionService) Establish(ctx context.Context, prev *domain.Session, res *LoginResult, r *http.Request) (*domain.Session, error) {
	if prev != nil {
		if err := s.Destroy(ctx, prev); err != nil {
			return nil, err
		}
	}

	sess := s.New(r)
	id := res.Credential.ID
	profile := res.Profile
	sess.UserID = &id
	sess.Identity = res.Credential.Label()
	sess.Role = res.Role
	sess.Profile = &profile

	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Destroy deletes sess from the store.
func (s *SessionService) Destroy(ctx context.Context, sess *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	return s.wrap(s.store.Delete(ctx, sess.ID))
}

func (s *SessionService) wrap(err error) error {
	if err == nil || errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	return fmt.Errorf("%w: session: %v", domain.ErrStoreUnavailable, err)
}
