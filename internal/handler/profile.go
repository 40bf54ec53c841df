package handler

import (
	"net/http"

	"github.com/stacksignal/lms-accounts/internal/service"
)

// ProfileHandler handles the authenticated account-management routes.
type ProfileHandler struct {
	accounts *service.AccountService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(accounts *service.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// HandleChangePassword replaces the password after re-verifying the old one.
// POST /api/v1/users/change-password
// Request:  {"oldPassword":"...","newPassword":"..."}
// Response: 204 No Content
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		writeDomainError(w, err, "change password")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdate changes the display name and/or replaces the avatar.
// Multipart so the avatar can ride along; both fields are optional.
// PUT /api/v1/users/update
// Fields: fullName, avatar (file)
// Response: {"user": {...}}
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var fullName string
	var avatar []byte
	var avatarContentType string

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form data.")
			return
		}
		fullName = r.FormValue("fullName")

		data, contentType, err := readAvatarFile(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Could not read the avatar file.")
			return
		}
		avatar = data
		avatarContentType = contentType
	} else {
		var req struct {
			FullName string `json:"fullName"`
		}
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		fullName = req.FullName
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), user.ID, fullName, avatar, avatarContentType)
	if err != nil {
		writeDomainError(w, err, "update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(updated),
	})
}

// HandleDeleteAccount removes the account after the caller re-types
// their email and the confirmation phrase, then clears the cookie.
// POST /api/v1/users/delete-account
// Request:  {"email":"...","confirmation":"delete my account"}
// Response: 204 No Content
func (h *ProfileHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var req struct {
		Email        string `json:"email"`
		Confirmation string `json:"confirmation"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), user.ID, req.Email, req.Confirmation); err != nil {
		writeDomainError(w, err, "delete account")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
