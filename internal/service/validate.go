package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stacksignal/lms-accounts/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// normalizeEmail lower-cases and trims the address, then checks its
// shape. All lookups and stores use the normalized form.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: please enter a valid email address", domain.ErrInvalidInput)
	}
	return email, nil
}

func validateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if len(trimmed) < 5 {
		return fmt.Errorf("%w: name must be at least 5 characters", domain.ErrInvalidInput)
	}
	if len(trimmed) > 40 {
		return fmt.Errorf("%w: name should be less than 40 characters", domain.ErrInvalidInput)
	}
	return nil
}

func validatePassword(plaintext string) error {
	if plaintext == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	if len(plaintext) < 6 {
		return fmt.Errorf("%w: password should be at least 6 characters", domain.ErrInvalidInput)
	}
	return nil
}
