package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/linkedroles-worker/internal/domain"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
)

func newTestStore(t *testing.T) (*RedisTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTokenStore(client), mr
}

func TestRedisTokenStore_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	record := domain.TokenRecord{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.UnixMilli(1700000000123),
	}
	require.NoError(t, store.PutTokens(ctx, "42", record))

	got, err := store.GetTokens(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, record.AccessToken, got.AccessToken)
	require.Equal(t, record.RefreshToken, got.RefreshToken)
	require.Equal(t, record.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())

	raw, err := mr.Get("discord:tokens:42")
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"access","refresh_token":"refresh","expires_at":1700000000123}`, raw)
	require.Zero(t, mr.TTL("discord:tokens:42"))
}

func TestRedisTokenStore_ReplaceWholesale(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutTokens(ctx, "42", domain.TokenRecord{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.UnixMilli(1)}))
	require.NoError(t, store.PutTokens(ctx, "42", domain.TokenRecord{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: time.UnixMilli(2)}))

	got, err := store.GetTokens(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, "a2", got.AccessToken)
	require.Equal(t, "r2", got.RefreshToken)
	require.Equal(t, int64(2), got.ExpiresAt.UnixMilli())
}

func TestRedisTokenStore_Missing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.GetTokens(context.Background(), "nobody")
	require.ErrorIs(t, err, domainoauth.ErrTokenNotFound)
}

func TestRedisTokenStore_Corrupt(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set("discord:tokens:42", "{not json"))
	_, err := store.GetTokens(context.Background(), "42")
	require.Error(t, err)
	require.NotErrorIs(t, err, domainoauth.ErrTokenNotFound)
}
