package multilogin

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HMACHasher digests plaintext credentials with HMAC-SHA256 keyed by a
// process-wide secret. Digests are deterministic for a given secret so the
// login query can match on the stored value directly. There is no per-user
// salt; compatibility with the existing directory format requires the exact
// digest layout.
type HMACHasher struct {
	secret []byte
}

// Verify interface compliance
var _ CredentialHasher = (*HMACHasher)(nil)

// NewHMACHasher creates a hasher keyed by secret
func NewHMACHasher(secret string) *HMACHasher {
	return &HMACHasher{secret: []byte(secret)}
}

// HashCredential returns the lowercase hex HMAC-SHA256 digest of plaintext
func (h *HMACHasher) HashCredential(plaintext string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// CompareCredential checks plaintext against a stored digest in constant time
func (h *HMACHasher) CompareCredential(plaintext, digest string) bool {
	computed := h.HashCredential(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
