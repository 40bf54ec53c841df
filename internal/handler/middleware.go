package handler

import (
	"context"
	"net/http"

	"github.com/stacksignal/lms-accounts/internal/domain"
	"github.com/stacksignal/lms-accounts/internal/session"
)

type contextKey string

const userContextKey contextKey = "user"

// sessionCookieName is the cookie carrying the signed session token.
const sessionCookieName = "token"

// UserFromContext extracts the authenticated user from the request context.
// Returns nil if no user is authenticated.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

// RequireAuth is middleware that protects routes requiring authentication.
// It reads the session cookie, verifies the JWT, loads the user from the
// store, and injects it into the request context. A token whose account
// no longer exists is rejected the same as a bad signature.
func RequireAuth(sessions *session.Manager, users domain.UserRepository, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticateRequest(r, sessions, users)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not authenticated.")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authenticateRequest(r *http.Request, sessions *session.Manager, users domain.UserRepository) (*domain.User, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := sessions.Verify(cookie.Value)
	if err != nil {
		return nil, err
	}

	user, err := users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

// SecurityHeaders sets baseline security headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
