package handler

import (
	"time"

	"github.com/stacksignal/lms-accounts/internal/domain"
)

// UserDTO is the JSON representation of a user. Credential material and
// token state never appear here.
type UserDTO struct {
	ID            string `json:"id"`
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	PendingEmail  string `json:"pendingEmail,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		FullName:      u.DisplayName,
		Email:         u.Email,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		AvatarURL:     u.AvatarURL,
		PendingEmail:  u.PendingEmail,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.Format(time.RFC3339),
	}
}
