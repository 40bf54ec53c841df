// Package token implements single-use verification tokens: a random
// URL-safe plaintext handed to the user exactly once, and a
// deterministic SHA-256 fingerprint that is the only thing ever stored.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/stacksignal/lms-accounts/internal/domain"
)

// rawLen is the number of random bytes per token. 32 bytes encode to a
// 43-character raw-URL-base64 string.
const rawLen = 32

// PlaintextLength is the length of every issued token plaintext.
const PlaintextLength = 43

// Issue generates a fresh token valid for ttl from now. The returned
// plaintext must be delivered to the user and discarded; only the slot
// (fingerprint + expiry) may be persisted.
func Issue(ttl time.Duration) (plaintext string, slot domain.TokenSlot, err error) {
	buf := make([]byte, rawLen)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.TokenSlot{}, fmt.Errorf("read random bytes: %w", err)
	}

	plaintext = base64.RawURLEncoding.EncodeToString(buf)
	slot = domain.TokenSlot{
		Fingerprint: Fingerprint(plaintext),
		ExpiresAt:   time.Now().Add(ttl),
	}
	return plaintext, slot, nil
}

// Fingerprint returns the hex-encoded SHA-256 digest of the plaintext.
// Deterministic, so a stored fingerprint can be looked up directly.
func Fingerprint(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Redeem reports whether candidate matches the slot and the slot has
// not expired at now. A nil or expired slot never redeems. Callers must
// pair a successful Redeem with an atomic consume that clears the slot.
func Redeem(candidate string, slot *domain.TokenSlot, now time.Time) bool {
	if slot == nil || slot.Expired(now) {
		return false
	}
	fp := Fingerprint(candidate)
	return subtle.ConstantTimeCompare([]byte(fp), []byte(slot.Fingerprint)) == 1
}
