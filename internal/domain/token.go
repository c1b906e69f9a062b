package domain

import "time"

// TokenRecord is one user's OAuth grant as persisted by the token store.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry at now.
func (r TokenRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// NewTokenRecord derives a record from a token endpoint response issued at now.
func NewTokenRecord(accessToken, refreshToken string, expiresIn int64, now time.Time) TokenRecord {
	return TokenRecord{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
	}
}
