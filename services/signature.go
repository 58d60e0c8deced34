package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const SignaturePrefix = "sha256="

// SignatureVerifier checks that a webhook delivery was produced by the
// event platform. The HMAC is computed over message id + timestamp + raw
// body, so the body must be the exact bytes received on the wire.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret []byte) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

// Verify returns true only when all three signature inputs are present and
// the claimed signature matches. The comparison is constant-time.
func (v SignatureVerifier) Verify(messageID, timestamp string, body []byte, claimed string) bool {
	if len(messageID) == 0 || len(timestamp) == 0 || len(claimed) == 0 {
		return false
	}
	if !strings.HasPrefix(claimed, SignaturePrefix) {
		return false
	}
	claimedMac, err := hex.DecodeString(strings.TrimPrefix(claimed, SignaturePrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(v.computeMac(messageID, timestamp, body), claimedMac)
}

// Sign produces the signature header value the platform would send for the
// given delivery. Used by tests and the local delivery simulator.
func (v SignatureVerifier) Sign(messageID, timestamp string, body []byte) string {
	return SignaturePrefix + hex.EncodeToString(v.computeMac(messageID, timestamp, body))
}

func (v SignatureVerifier) computeMac(messageID, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return mac.Sum(nil)
}
