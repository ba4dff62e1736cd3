package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"avena-triage-core/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "oauth_session:"

// RedisStore keeps OAuth sessions in Redis. The key TTL enforces session
// expiry and SET NX enforces at most one live session per store; GETDEL
// makes Consume atomic so a replayed callback can never see the session a
// second time.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Create implements ports.SessionStore.
func (s *RedisStore) Create(ctx context.Context, session *domain.OAuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session for %s already expired", session.StoreID)
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+session.StoreID, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyPending
	}
	return nil
}

// Consume implements ports.SessionStore.
func (s *RedisStore) Consume(ctx context.Context, storeID string) (*domain.OAuthSession, error) {
	data, err := s.client.GetDel(ctx, keyPrefix+storeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume session: %w", err)
	}

	var session domain.OAuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Warn().Err(err).Str("store", storeID).Msg("Discarding undecodable oauth session")
		return nil, domain.ErrSessionExpired
	}
	if !session.Live(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return &session, nil
}
