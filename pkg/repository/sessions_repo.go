package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// SessionsRepository stores sessions in Redis as JSON blobs with a TTL.
type SessionsRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewSessionsRepository creates a Redis-backed session repository.
func NewSessionsRepository(rdb redis.UniversalClient, prefix string) *SessionsRepository {
	if prefix == "" {
		prefix = "ims"
	}
	return &SessionsRepository{rdb: rdb, prefix: prefix}
}

func (r *SessionsRepository) key(id string) string {
	return r.prefix + ":sess:" + id
}

// Save writes the session and sets its expiry.
func (r *SessionsRepository) Save(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.rdb.Set(ctx, r.key(s.ID), data, ttl).Err()
}

// Get loads a session by ID.
func (r *SessionsRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt blob is treated as no session.
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *SessionsRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.key(id)).Err()
}
