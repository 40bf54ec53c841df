package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacksignal/lms-accounts/internal/domain"
	"github.com/stacksignal/lms-accounts/internal/password"
	"github.com/stacksignal/lms-accounts/internal/token"
)

// VerifyEmail redeems an email-verification token and marks the address
// verified. Absent, mismatched, and expired tokens all produce
// ErrInvalidToken.
func (s *AccountService) VerifyEmail(ctx context.Context, plaintext string) error {
	user, err := s.lookupByToken(ctx, domain.TokenVerifyEmail, plaintext)
	if err != nil {
		return err
	}
	fp := token.Fingerprint(plaintext)
	return s.users.ConsumeVerifyToken(ctx, user.ID, fp)
}

// RequestPasswordReset issues a reset token and mails the link,
// replacing any previously outstanding reset token. If the mail cannot
// be delivered the slot is rolled back so no usable token the user
// never received stays outstanding.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	norm, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, norm)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	plaintext, slot, err := token.Issue(s.resetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.users.SetTokenSlot(ctx, user.ID, domain.TokenPasswordReset, slot, ""); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	body, err := renderMail(resetMailTmpl, user.DisplayName, s.baseURL+"/api/v1/users/reset-password/"+plaintext)
	if err != nil {
		return fmt.Errorf("render reset mail: %w", err)
	}
	if err := s.notifier.Send(ctx, user.Email, subjectPasswordReset, body); err != nil {
		// Fail closed.
		if clearErr := s.users.ClearTokenSlot(ctx, user.ID, domain.TokenPasswordReset); clearErr != nil {
			slog.Error("clear reset slot after send failure", "error", clearErr, "user_id", user.ID)
		}
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}

// ResetPassword redeems a reset token and sets the new password. The
// hash write and the slot clear are one atomic store update, so a
// token redeems at most once even under concurrent requests.
func (s *AccountService) ResetPassword(ctx context.Context, plaintext, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.lookupByToken(ctx, domain.TokenPasswordReset, plaintext)
	if err != nil {
		return err
	}

	hash, err := password.Hash(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	fp := token.Fingerprint(plaintext)
	return s.users.ConsumePasswordResetToken(ctx, user.ID, fp, hash)
}

// RequestEmailChange records the pending address and mails a
// verification link to it. The new address must not collide with any
// existing account.
func (s *AccountService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	norm, err := normalizeEmail(newEmail)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if norm == user.Email {
		return fmt.Errorf("%w: the account already uses this address", domain.ErrInvalidInput)
	}

	if _, err := s.users.GetByEmail(ctx, norm); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check email availability: %w", err)
	}

	plaintext, slot, err := token.Issue(s.verifyTTL)
	if err != nil {
		return fmt.Errorf("issue email change token: %w", err)
	}
	if err := s.users.SetTokenSlot(ctx, user.ID, domain.TokenEmailChange, slot, norm); err != nil {
		return fmt.Errorf("store email change token: %w", err)
	}

	body, err := renderMail(emailChangeMailTmpl, user.DisplayName, s.baseURL+"/api/v1/users/verify-new-email/"+plaintext)
	if err != nil {
		return fmt.Errorf("render email change mail: %w", err)
	}
	// The link goes to the address being claimed, not the current one.
	if err := s.notifier.Send(ctx, norm, subjectEmailChange, body); err != nil {
		// Fail closed, same as password reset.
		if clearErr := s.users.ClearTokenSlot(ctx, user.ID, domain.TokenEmailChange); clearErr != nil {
			slog.Error("clear email change slot after send failure", "error", clearErr, "user_id", user.ID)
		}
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}

// VerifyEmailChange redeems an email-change token and swaps the
// identity to the pending address. A collision that appeared after the
// request surfaces as ErrDuplicateEmail.
func (s *AccountService) VerifyEmailChange(ctx context.Context, plaintext string) error {
	user, err := s.lookupByToken(ctx, domain.TokenEmailChange, plaintext)
	if err != nil {
		return err
	}
	if user.PendingEmail == "" {
		return domain.ErrInvalidToken
	}

	fp := token.Fingerprint(plaintext)
	return s.users.ConsumeEmailChangeToken(ctx, user.ID, fp, user.PendingEmail)
}

// lookupByToken finds the record holding the token's fingerprint and
// checks redemption. Expired slots are lazily cleared so records do not
// carry dead tokens; the caller still sees ErrInvalidToken.
func (s *AccountService) lookupByToken(ctx context.Context, purpose domain.TokenPurpose, plaintext string) (*domain.User, error) {
	fp := token.Fingerprint(plaintext)
	user, err := s.users.GetByTokenFingerprint(ctx, purpose, fp)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}

	now := time.Now()
	slot := user.Slot(purpose)
	if !token.Redeem(plaintext, slot, now) {
		if slot != nil && slot.Expired(now) {
			if err := s.users.ClearTokenSlot(ctx, user.ID, purpose); err != nil {
				slog.Error("clear expired token slot", "error", err, "user_id", user.ID)
			}
		}
		return nil, domain.ErrInvalidToken
	}
	return user, nil
}
