package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallbiznis/linkedroles-worker/internal/domain"
	domainoauth "github.com/smallbiznis/linkedroles-worker/internal/domain/oauth"
)

const createTokensTableSQL = `CREATE TABLE IF NOT EXISTS discord_tokens (
	user_id       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at    BIGINT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const upsertTokensSQL = `INSERT INTO discord_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	expires_at = EXCLUDED.expires_at,
	updated_at = NOW()`

const selectTokensSQL = `SELECT access_token, refresh_token, expires_at FROM discord_tokens WHERE user_id = $1`

var _ TokenStore = (*PostgresTokenRepo)(nil)

// PostgresTokenRepo implements TokenStore on a single upserted table.
type PostgresTokenRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTokenRepo(pool *pgxpool.Pool) *PostgresTokenRepo {
	return &PostgresTokenRepo{pool: pool}
}

// EnsureSchema creates the tokens table when missing.
func (r *PostgresTokenRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTokensTableSQL); err != nil {
		return fmt.Errorf("create discord_tokens: %w", err)
	}
	return nil
}

func (r *PostgresTokenRepo) GetTokens(ctx context.Context, userID string) (domain.TokenRecord, error) {
	var (
		record    domain.TokenRecord
		expiresAt int64
	)
	err := r.pool.QueryRow(ctx, selectTokensSQL, userID).Scan(&record.AccessToken, &record.RefreshToken, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenRecord{}, fmt.Errorf("user %s: %w", userID, domainoauth.ErrTokenNotFound)
		}
		return domain.TokenRecord{}, fmt.Errorf("get tokens: %w", err)
	}
	record.ExpiresAt = time.UnixMilli(expiresAt)
	return record, nil
}

func (r *PostgresTokenRepo) PutTokens(ctx context.Context, userID string, record domain.TokenRecord) error {
	if _, err := r.pool.Exec(ctx, upsertTokensSQL, userID, record.AccessToken, record.RefreshToken, record.ExpiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("put tokens: %w", err)
	}
	return nil
}
