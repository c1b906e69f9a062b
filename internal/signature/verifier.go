package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

const (
	// HeaderSignature carries the hex ed25519 signature of timestamp+body.
	HeaderSignature = "X-Signature-Ed25519"
	// HeaderTimestamp carries the timestamp that was signed alongside the body.
	HeaderTimestamp = "X-Signature-Timestamp"
)

// Verifier checks interaction request signatures against the application public key.
type Verifier struct {
	publicKey ed25519.PublicKey
}

// NewVerifier parses a hex encoded ed25519 public key.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return &Verifier{publicKey: ed25519.PublicKey(raw)}, nil
}

// Verify reports whether signature is a valid signature of timestamp followed by body.
// Missing or malformed input is reported as invalid.
func (v *Verifier) Verify(body []byte, signature, timestamp string) bool {
	if v == nil || signature == "" || timestamp == "" {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(v.publicKey, msg, sig)
}
