package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stacksignal/lms-accounts/internal/handler"
	"github.com/stacksignal/lms-accounts/internal/session"
)

func TestRequireAuth_ValidToken(t *testing.T) {
	env := newTestEnv(t)

	user := registerUser(t, env, "valid@example.com")
	token, err := env.sessions.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var gotUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := handler.UserFromContext(r.Context()); u != nil {
			gotUser = u.Email
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := httptest.NewRecorder()

	handler.RequireAuth(env.sessions, env.db.Users(), inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != "valid@example.com" {
		t.Fatalf("expected user in context, got %q", gotUser)
	}
}

func TestRequireAuth_MissingCookie(t *testing.T) {
	env := newTestEnv(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	handler.RequireAuth(env.sessions, env.db.Users(), inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_TamperedToken(t *testing.T) {
	env := newTestEnv(t)

	user := registerUser(t, env, "tamper@example.com")
	token, err := env.sessions.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	tampered := token[:len(token)-1] + "X"

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: tampered})
	w := httptest.NewRecorder()

	handler.RequireAuth(env.sessions, env.db.Users(), inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_DeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerUser(t, env, "gone@example.com")
	token, err := env.sessions.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// A still-valid token for an account that no longer exists.
	if err := env.db.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := httptest.NewRecorder()

	handler.RequireAuth(env.sessions, env.db.Users(), inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)

	user := registerUser(t, env, "expired@example.com")
	expired := session.NewManager(testJWTSecret, -time.Minute)
	token, err := expired.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := httptest.NewRecorder()

	handler.RequireAuth(env.sessions, env.db.Users(), inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
