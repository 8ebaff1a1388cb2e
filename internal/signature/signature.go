// Package signature signs and verifies webhook payloads and checkout
// tokens with a shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/citypay-ro/ghiseul-gateway/internal/domain"
)

// Signer produces HMAC-SHA256 signatures over a transaction id and status.
// Rotating the secret invalidates all previously issued signatures; they are
// short-lived and tied to one transaction's lifecycle, so that is acceptable.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer with the shared webhook secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign computes the hex HMAC-SHA256 of "transactionId:status".
func (s *Signer) Sign(transactionID string, status domain.TransactionStatus) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(transactionID + ":" + string(status)))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the expected signature and compares in constant time.
func (s *Signer) Verify(transactionID string, status domain.TransactionStatus, signature string) bool {
	expected := s.Sign(transactionID, status)
	return hmac.Equal([]byte(signature), []byte(expected))
}
