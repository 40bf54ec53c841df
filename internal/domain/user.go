package domain

import (
	"context"
	"time"
)

// Role is the two-value permission flag carried in session claims.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// TokenPurpose names a token slot on a user record. Each purpose holds
// at most one outstanding token at a time.
type TokenPurpose string

const (
	TokenVerifyEmail   TokenPurpose = "verify_email"
	TokenPasswordReset TokenPurpose = "password_reset"
	TokenEmailChange   TokenPurpose = "email_change"
)

// TokenSlot is the stored half of a single-use token: a deterministic
// fingerprint of the plaintext plus its expiry. The plaintext itself is
// never persisted.
type TokenSlot struct {
	Fingerprint string
	ExpiresAt   time.Time
}

// Expired reports whether the slot's token is past its expiry.
// An expired slot behaves exactly like an absent one at redemption.
func (s TokenSlot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// User represents a registered account.
//
// PendingEmail is set only while an email-change verification is
// outstanding and is cleared when the change completes or the slot is
// replaced.
type User struct {
	ID             string
	Email          string
	DisplayName    string
	PasswordHash   string
	Role           Role
	EmailVerified  bool
	AvatarPublicID string
	AvatarURL      string
	PendingEmail   string

	VerifyToken      *TokenSlot
	ResetToken       *TokenSlot
	EmailChangeToken *TokenSlot

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot returns the token slot for the given purpose, or nil when no
// token is outstanding.
func (u *User) Slot(p TokenPurpose) *TokenSlot {
	switch p {
	case TokenVerifyEmail:
		return u.VerifyToken
	case TokenPasswordReset:
		return u.ResetToken
	case TokenEmailChange:
		return u.EmailChangeToken
	default:
		return nil
	}
}

// UserRepository defines persistence operations for users.
//
// The Consume* methods apply a token's effect and clear its slot in a
// single conditional update keyed on the stored fingerprint. They
// return ErrInvalidToken when the slot no longer holds that
// fingerprint, which is what makes redemption single-use under
// concurrent requests.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByTokenFingerprint(ctx context.Context, purpose TokenPurpose, fingerprint string) (*User, error)

	// SetTokenSlot overwrites the slot for the given purpose,
	// invalidating any previously outstanding token. pendingEmail is
	// stored only for the email-change purpose and ignored otherwise.
	SetTokenSlot(ctx context.Context, userID string, purpose TokenPurpose, slot TokenSlot, pendingEmail string) error

	// ClearTokenSlot empties the slot (and the pending email for the
	// email-change purpose) without applying any effect. Used to roll
	// back after a failed notification and to lazily drop expired
	// tokens.
	ClearTokenSlot(ctx context.Context, userID string, purpose TokenPurpose) error

	ConsumeVerifyToken(ctx context.Context, userID, fingerprint string) error
	ConsumePasswordResetToken(ctx context.Context, userID, fingerprint, newPasswordHash string) error
	ConsumeEmailChangeToken(ctx context.Context, userID, fingerprint, newEmail string) error

	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	UpdateDisplayName(ctx context.Context, userID, displayName string) error
	UpdateAvatar(ctx context.Context, userID, publicID, url string) error
	Delete(ctx context.Context, userID string) error
}
