package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stacksignal/lms-accounts/internal/service"
	"github.com/stacksignal/lms-accounts/internal/session"
)

// maxUploadBytes caps multipart request bodies (avatar uploads).
const maxUploadBytes = 5 << 20

// AuthHandler handles registration, login, and session management.
type AuthHandler struct {
	accounts     *service.AccountService
	sessions     *session.Manager
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AccountService, sessions *session.Manager, cookieSecure bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, cookieSecure: cookieSecure}
}

// HandleRegister creates a new account. Accepts JSON or, when an avatar
// is attached, multipart form data.
// POST /api/v1/users/register
// Fields: fullName, email, password, avatar (optional file)
// Response: 201 {"user": {...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form data.")
			return
		}
		in.FullName = r.FormValue("fullName")
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")

		avatar, contentType, err := readAvatarFile(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Could not read the avatar file.")
			return
		}
		in.Avatar = avatar
		in.AvatarContentType = contentType
	} else {
		var req struct {
			FullName string `json:"fullName"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		in.FullName = req.FullName
		in.Email = req.Email
		in.Password = req.Password
	}

	user, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeDomainError(w, err, "register user")
		return
	}

	// Registration logs the new account straight in.
	token, err := h.sessions.Issue(user)
	if err != nil {
		slog.Error("issue session token", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}
	http.SetCookie(w, h.sessionCookie(token, int(h.sessions.TTL().Seconds())))

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleLogin verifies credentials and sets the session cookie.
// POST /api/v1/users/login
// Request:  {"email":"...","password":"..."}
// Response: {"user": {...}}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err, "login user")
		return
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		slog.Error("issue session token", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	http.SetCookie(w, h.sessionCookie(token, int(h.sessions.TTL().Seconds())))

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleLogout clears the session cookie. The token itself stays valid
// until it expires; logout only removes it from the browser.
// POST /api/v1/users/logout
// Response: 204 No Content
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the currently authenticated user.
// GET /api/v1/users/me
// Response: {"user": {...}} or 401
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readAvatarFile pulls the optional avatar out of a parsed multipart
// form. A missing file is not an error; the content type is sniffed
// from the bytes rather than trusted from the part header.
func readAvatarFile(r *http.Request) ([]byte, string, error) {
	file, _, err := r.FormFile("avatar")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, "", nil
		}
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}
