package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallbiznis/linkedroles-worker/internal/domain"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
	"github.com/smallbiznis/linkedroles-worker/internal/repository"
)

const tokenKeyPrefix = "discord:tokens:"

// RedisTokenStore implements TokenStore backed by Redis.
type RedisTokenStore struct {
	client redis.UniversalClient
}

var _ repository.TokenStore = (*RedisTokenStore)(nil)

// storedTokens is the persisted shape; expires_at is unix milliseconds.
type storedTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// NewRedisTokenStore constructs a Redis-backed token store.
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// PutTokens replaces the stored grant for userID. Grants do not expire in Redis;
// the refresh token outlives the access token.
func (s *RedisTokenStore) PutTokens(ctx context.Context, userID string, record domain.TokenRecord) error {
	payload, err := json.Marshal(storedTokens{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey(userID), payload, 0).Err(); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}

// GetTokens loads and decodes the grant for userID.
func (s *RedisTokenStore) GetTokens(ctx context.Context, userID string) (domain.TokenRecord, error) {
	bytes, err := s.client.Get(ctx, tokenKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TokenRecord{}, fmt.Errorf("user %s: %w", userID, domainoauth.ErrTokenNotFound)
		}
		return domain.TokenRecord{}, fmt.Errorf("load tokens: %w", err)
	}
	var stored storedTokens
	if err := json.Unmarshal(bytes, &stored); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("decode tokens: %w", err)
	}
	return domain.TokenRecord{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    time.UnixMilli(stored.ExpiresAt),
	}, nil
}

func tokenKey(userID string) string {
	return tokenKeyPrefix + userID
}
