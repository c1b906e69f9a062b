package cookie

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

const (
	// StateCookieName holds the signed OAuth state between redirect and callback.
	StateCookieName = "client_state"
	// StateMaxAge bounds how long a consent screen may stay open.
	StateMaxAge = 5 * time.Minute
)

// ErrInvalidCookie covers malformed, tampered and expired state cookies.
var ErrInvalidCookie = errors.New("cookie: invalid state cookie")

type stateClaims struct {
	State string `json:"state"`
}

// StateSigner signs and verifies the client_state cookie as a compact HS256 JWS.
type StateSigner struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewStateSigner derives the HMAC key from secret.
func NewStateSigner(secret string) *StateSigner {
	sum := sha256.Sum256([]byte(secret))
	return &StateSigner{key: sum[:], maxAge: StateMaxAge, now: time.Now}
}

// MaxAge is the lifetime embedded in issued values.
func (s *StateSigner) MaxAge() time.Duration {
	return s.maxAge
}

// Sign wraps state into a signed cookie value.
func (s *StateSigner) Sign(state string) (string, error) {
	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: gojose.HS256, Key: s.key}, (&gojose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}
	now := s.now().UTC()
	std := gojwt.Claims{
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(s.maxAge)),
	}
	value, err := gojwt.Signed(signer).Claims(std).Claims(stateClaims{State: state}).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize state: %w", err)
	}
	return value, nil
}

// Verify returns the state carried by value when its signature and expiry hold.
func (s *StateSigner) Verify(value string) (string, error) {
	parsed, err := gojwt.ParseSigned(value, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return "", fmt.Errorf("parse: %w", ErrInvalidCookie)
	}
	var (
		std    gojwt.Claims
		custom stateClaims
	)
	if err := parsed.Claims(s.key, &std, &custom); err != nil {
		return "", fmt.Errorf("verify: %w", ErrInvalidCookie)
	}
	if err := std.ValidateWithLeeway(gojwt.Expected{Time: s.now()}, 0); err != nil {
		return "", fmt.Errorf("validate: %w", ErrInvalidCookie)
	}
	if custom.State == "" {
		return "", fmt.Errorf("empty state: %w", ErrInvalidCookie)
	}
	return custom.State, nil
}
