package handler

import (
	"net/http"

	"github.com/stacksignal/lms-accounts/internal/avatar"
	"github.com/stacksignal/lms-accounts/internal/domain"
	"github.com/stacksignal/lms-accounts/internal/service"
	"github.com/stacksignal/lms-accounts/internal/session"
)

// RegisterRoutes sets up all HTTP routes on the given mux. blobs may be
// nil when avatars live in S3; the serving route is then not mounted.
func RegisterRoutes(
	mux *http.ServeMux,
	accounts *service.AccountService,
	sessions *session.Manager,
	users domain.UserRepository,
	blobs *avatar.BlobStore,
	cookieSecure bool,
) {
	auth := NewAuthHandler(accounts, sessions, cookieSecure)
	profile := NewProfileHandler(accounts)
	recovery := NewRecoveryHandler(accounts)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(sessions, users, h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.HandleFunc("POST /api/v1/users/register", auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/users/login", auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/users/logout", auth.HandleLogout)
	mux.Handle("GET /api/v1/users/me", requireAuth(auth.HandleMe))

	mux.HandleFunc("GET /api/v1/users/verify-email/{token}", recovery.HandleVerifyEmail)
	mux.HandleFunc("POST /api/v1/users/reset-password", recovery.HandleRequestPasswordReset)
	mux.HandleFunc("POST /api/v1/users/reset-password/{resetToken}", recovery.HandleResetPassword)
	mux.Handle("POST /api/v1/users/change-email", requireAuth(recovery.HandleChangeEmail))
	mux.HandleFunc("GET /api/v1/users/verify-new-email/{token}", recovery.HandleVerifyNewEmail)

	mux.Handle("POST /api/v1/users/change-password", requireAuth(profile.HandleChangePassword))
	mux.Handle("PUT /api/v1/users/update", requireAuth(profile.HandleUpdate))
	mux.Handle("POST /api/v1/users/delete-account", requireAuth(profile.HandleDeleteAccount))

	if blobs != nil {
		avatars := NewAvatarHandler(blobs)
		mux.HandleFunc("GET /api/v1/users/avatar/{key}", avatars.HandleServe)
	}
}
