// Package service contains the account lifecycle flows. Each flow is a
// short request/response unit that sequences the hasher, the token
// forge, the store, and the external collaborators, returning typed
// errors from the domain package.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stacksignal/lms-accounts/internal/domain"
	"github.com/stacksignal/lms-accounts/internal/password"
	"github.com/stacksignal/lms-accounts/internal/token"
)

// deleteConfirmationPhrase must be typed verbatim to delete an account.
const deleteConfirmationPhrase = "delete my account"

// AccountService orchestrates registration, authentication, and the
// token-gated account flows.
type AccountService struct {
	users      domain.UserRepository
	notifier   domain.Notifier
	avatars    domain.AvatarStore
	bcryptCost int
	baseURL    string
	verifyTTL  time.Duration
	resetTTL   time.Duration
}

// NewAccountService creates an AccountService. baseURL is the public
// prefix used to build the links embedded in notification emails.
func NewAccountService(
	users domain.UserRepository,
	notifier domain.Notifier,
	avatars domain.AvatarStore,
	bcryptCost int,
	baseURL string,
	verifyTTL, resetTTL time.Duration,
) *AccountService {
	return &AccountService{
		users:      users,
		notifier:   notifier,
		avatars:    avatars,
		bcryptCost: bcryptCost,
		baseURL:    baseURL,
		verifyTTL:  verifyTTL,
		resetTTL:   resetTTL,
	}
}

// RegisterInput carries the fields of a registration request. Avatar is
// optional.
type RegisterInput struct {
	FullName          string
	Email             string
	Password          string
	Avatar            []byte
	AvatarContentType string
}

// Register creates a new account with a hashed password, uploads the
// optional avatar, and mails a verification link. Avatar and email
// failures are logged but do not undo the account.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validateDisplayName(in.FullName); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := password.Hash(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  in.FullName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// A storage failure after the record exists must not roll back the
	// account; the user simply has no avatar.
	if len(in.Avatar) > 0 {
		s.setAvatar(ctx, user, in.Avatar, in.AvatarContentType)
	}

	// Verification is advisory: registration succeeds even when the
	// email cannot be delivered.
	if err := s.sendVerification(ctx, user); err != nil {
		slog.Error("send verification email", "error", err, "user_id", user.ID)
	}

	return user, nil
}

// Login verifies the credentials and returns the user. Unknown email
// and wrong password produce the identical ErrInvalidCredentials so the
// caller cannot tell which field was wrong.
func (s *AccountService) Login(ctx context.Context, email, plaintext string) (*domain.User, error) {
	norm, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, norm)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !password.Verify(plaintext, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (s *AccountService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ChangePassword replaces the password of an authenticated user after
// re-verifying the old one.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if !password.Verify(oldPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := password.Hash(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

// UpdateProfile changes the display name and/or replaces the avatar.
// Empty fullName and empty avatar each mean "leave unchanged".
func (s *AccountService) UpdateProfile(ctx context.Context, userID, fullName string, avatar []byte, avatarContentType string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if fullName != "" && fullName != user.DisplayName {
		if err := validateDisplayName(fullName); err != nil {
			return nil, err
		}
		if err := s.users.UpdateDisplayName(ctx, userID, fullName); err != nil {
			return nil, fmt.Errorf("update display name: %w", err)
		}
	}

	if len(avatar) > 0 {
		oldPublicID := user.AvatarPublicID
		if s.setAvatar(ctx, user, avatar, avatarContentType) && oldPublicID != "" {
			if err := s.avatars.Delete(ctx, oldPublicID); err != nil {
				slog.Error("delete replaced avatar", "error", err, "public_id", oldPublicID)
			}
		}
	}

	return s.users.GetByID(ctx, userID)
}

// DeleteAccount removes the account after the caller re-types their
// email and the confirmation phrase. The avatar is released best-effort
// before the record is deleted.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, email, confirmation string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if confirmation != deleteConfirmationPhrase {
		return fmt.Errorf("%w: confirmation phrase does not match", domain.ErrInvalidInput)
	}
	norm, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if norm != user.Email {
		return fmt.Errorf("%w: email does not match the account", domain.ErrInvalidInput)
	}

	if user.AvatarPublicID != "" {
		if err := s.avatars.Delete(ctx, user.AvatarPublicID); err != nil {
			slog.Error("release avatar on delete", "error", err, "public_id", user.AvatarPublicID)
		}
	}

	return s.users.Delete(ctx, userID)
}

// setAvatar uploads the image and stores the reference, reporting
// success. Failures are logged only; credential state stays intact.
func (s *AccountService) setAvatar(ctx context.Context, user *domain.User, data []byte, contentType string) bool {
	publicID, url, err := s.avatars.Upload(ctx, data, contentType)
	if err != nil {
		slog.Error("upload avatar", "error", err, "user_id", user.ID)
		return false
	}
	if err := s.users.UpdateAvatar(ctx, user.ID, publicID, url); err != nil {
		slog.Error("store avatar reference", "error", err, "user_id", user.ID)
		return false
	}
	user.AvatarPublicID = publicID
	user.AvatarURL = url
	return true
}

// sendVerification issues a fresh email-verification token and mails
// the link. Issuing overwrites any previously outstanding token.
func (s *AccountService) sendVerification(ctx context.Context, user *domain.User) error {
	plaintext, slot, err := token.Issue(s.verifyTTL)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	if err := s.users.SetTokenSlot(ctx, user.ID, domain.TokenVerifyEmail, slot, ""); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	body, err := renderMail(verifyMailTmpl, user.DisplayName, s.baseURL+"/api/v1/users/verify-email/"+plaintext)
	if err != nil {
		return fmt.Errorf("render verification mail: %w", err)
	}
	if err := s.notifier.Send(ctx, user.Email, subjectVerifyEmail, body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}
