package repository

import (
	"context"

	"github.com/smallbiznis/linkedroles-worker/internal/domain"
)

// TokenStore persists one OAuth grant per platform user id.
// Get returns domainoauth.ErrTokenNotFound when nothing is stored.
type TokenStore interface {
	GetTokens(ctx context.Context, userID string) (domain.TokenRecord, error)
	PutTokens(ctx context.Context, userID string, record domain.TokenRecord) error
}
