// README: Keyed-hash verification of gateway payment callbacks.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer verifies the gateway's callback signature:
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify fails closed: any decode error or mismatch is a rejection.
func (s *Signer) Verify(orderID, paymentID, signature string) bool {
	want := s.Sign(orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(signature))
}
