package handler

import (
	"net/http"

	"github.com/stacksignal/lms-accounts/internal/service"
)

// RecoveryHandler handles the emailed-link flows: email verification,
// password reset, and email change. The token travels in the URL path,
// exactly as it was mailed.
type RecoveryHandler struct {
	accounts *service.AccountService
}

// NewRecoveryHandler creates a new RecoveryHandler.
func NewRecoveryHandler(accounts *service.AccountService) *RecoveryHandler {
	return &RecoveryHandler{accounts: accounts}
}

// HandleVerifyEmail redeems an email-verification link.
// GET /api/v1/users/verify-email/{token}
// Response: {"message": "..."}
func (h *RecoveryHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.VerifyEmail(r.Context(), r.PathValue("token")); err != nil {
		writeDomainError(w, err, "verify email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Your email address has been verified.",
	})
}

// HandleRequestPasswordReset issues a reset token and mails the link.
// POST /api/v1/users/reset-password
// Request:  {"email":"..."}
// Response: {"message": "..."}
func (h *RecoveryHandler) HandleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeDomainError(w, err, "request password reset")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "A password reset link has been sent to your email address.",
	})
}

// HandleResetPassword redeems a reset link and sets the new password.
// POST /api/v1/users/reset-password/{resetToken}
// Request:  {"password":"..."}
// Response: {"message": "..."}
func (h *RecoveryHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), r.PathValue("resetToken"), req.Password); err != nil {
		writeDomainError(w, err, "reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Your password has been reset. You can now log in with the new password.",
	})
}

// HandleChangeEmail records a pending new address and mails a
// verification link to it. The current address stays active until the
// link is redeemed.
// POST /api/v1/users/change-email
// Request:  {"newEmail":"..."}
// Response: {"message": "..."}
func (h *RecoveryHandler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var req struct {
		NewEmail string `json:"newEmail"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.accounts.RequestEmailChange(r.Context(), user.ID, req.NewEmail); err != nil {
		writeDomainError(w, err, "request email change")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "A verification link has been sent to the new email address.",
	})
}

// HandleVerifyNewEmail redeems an email-change link and swaps the
// account to the pending address.
// GET /api/v1/users/verify-new-email/{token}
// Response: {"message": "..."}
func (h *RecoveryHandler) HandleVerifyNewEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.VerifyEmailChange(r.Context(), r.PathValue("token")); err != nil {
		writeDomainError(w, err, "verify new email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Your new email address has been verified.",
	})
}
