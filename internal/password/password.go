// Package password wraps bcrypt hashing so that every place a password
// is set or checked goes through one explicit, visible call.
package password

import "golang.org/x/crypto/bcrypt"

// Hash derives a salted bcrypt digest from the plaintext at the given
// cost. The digest embeds its own salt and cost, so Hash is
// non-deterministic across calls.
func Hash(plaintext string, cost int) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. Any
// error, including a malformed digest, is treated as a non-match so
// that no secret material leaks through error paths.
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
