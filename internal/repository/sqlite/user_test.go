package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stacksignal/lms-accounts/internal/domain"
	"github.com/stacksignal/lms-accounts/internal/repository/sqlite"
)

func newTestUser(id, email string) *domain.User {
	return &domain.User{
		ID:           id,
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: "hashedpw",
		Role:         domain.RoleUser,
	}
}

func mustCreate(t *testing.T, repo *sqlite.UserRepository, user *domain.User) {
	t.Helper()
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestUserRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := newTestUser("u1", "test@example.com")
	mustCreate(t, repo, user)

	if user.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "test@example.com" {
		t.Fatalf("expected email test@example.com, got %s", got.Email)
	}
	if got.Role != domain.RoleUser {
		t.Fatalf("expected role USER, got %s", got.Role)
	}
	if got.EmailVerified {
		t.Fatal("expected new user to be unverified")
	}
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()

	mustCreate(t, repo, newTestUser("u1", "dup@example.com"))

	err := repo.Create(context.Background(), newTestUser("u2", "dup@example.com"))
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_TokenSlotRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	mustCreate(t, repo, newTestUser("u1", "slots@example.com"))

	slot := domain.TokenSlot{Fingerprint: "fp-1", ExpiresAt: time.Now().Add(15 * time.Minute).UTC()}
	if err := repo.SetTokenSlot(ctx, "u1", domain.TokenPasswordReset, slot, ""); err != nil {
		t.Fatalf("SetTokenSlot: %v", err)
	}

	got, err := repo.GetByTokenFingerprint(ctx, domain.TokenPasswordReset, "fp-1")
	if err != nil {
		t.Fatalf("GetByTokenFingerprint: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("expected user u1, got %s", got.ID)
	}
	if got.ResetToken == nil || got.ResetToken.Fingerprint != "fp-1" {
		t.Fatal("expected reset slot to be populated")
	}

	if err := repo.ClearTokenSlot(ctx, "u1", domain.TokenPasswordReset); err != nil {
		t.Fatalf("ClearTokenSlot: %v", err)
	}

	got, err = repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ResetToken != nil {
		t.Fatal("expected reset slot to be cleared")
	}
}

func TestUserRepository_SetTokenSlot_Overwrites(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	mustCreate(t, repo, newTestUser("u1", "overwrite@example.com"))

	expiry := time.Now().Add(10 * time.Minute).UTC()
	if err := repo.SetTokenSlot(ctx, "u1", domain.TokenVerifyEmail, domain.TokenSlot{Fingerprint: "old", ExpiresAt: expiry}, ""); err != nil {
		t.Fatalf("SetTokenSlot old: %v", err)
	}
	if err := repo.SetTokenSlot(ctx, "u1", domain.TokenVerifyEmail, domain.TokenSlot{Fingerprint: "new", ExpiresAt: expiry}, ""); err != nil {
		t.Fatalf("SetTokenSlot new: %v", err)
	}

	if _, err := repo.GetByTokenFingerprint(ctx, domain.TokenVerifyEmail, "old"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old fingerprint to be gone, got %v", err)
	}

	// Consuming with the replaced fingerprint must fail.
	if err := repo.ConsumeVerifyToken(ctx, "u1", "old"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for replaced fingerprint, got %v", err)
	}
}

func TestUserRepository_ConsumeVerifyToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	mustCreate(t, repo, newTestUser("u1", "verify@example.com"))

	slot := domain.TokenSlot{Fingerprint: "fp-v", ExpiresAt: time.Now().Add(10 * time.Minute).UTC()}
	if err := repo.SetTokenSlot(ctx, "u1", domain.TokenVerifyEmail, slot, ""); err != nil {
		t.Fatalf("SetTokenSlot: %v", err)
	}

	if err := repo.ConsumeVerifyToken(ctx, "u1", "fp-v"); err != nil {
		t.Fatalf("ConsumeVerifyToken: %v", err)
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.EmailVerified {
		t.Fatal("expected email to be verified")
	}
	if got.VerifyToken != nil {
		t.Fatal("expected verify slot to be cleared")
	}

	// Second consumption with the same fingerprint must fail.
	if err := repo.ConsumeVerifyToken(ctx, "u1", "fp-v"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on second consume, got %v", err)
	}
}

func TestUserRepository_ConsumePasswordResetToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	mustCreate(t, repo, newTestUser("u1", "reset@example.com"))

	slot := domain.TokenSlot{Fingerprint: "fp-r", ExpiresAt: time.Now().Add(15 * time.Minute).UTC()}
	if err := repo.SetTokenSlot(ctx, "u1", domain.TokenPasswordReset, slot, ""); err != nil {
		t.Fatalf("SetTokenSlot: %v", err)
	}

	if err := repo.ConsumePasswordResetToken(ctx, "u1", "fp-r", "newhash"); err != nil {
		t.Fatalf("ConsumePasswordResetToken: %v", err)
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PasswordHash != "newhash" {
		t.Fatalf("expected new password hash, got %s", got.PasswordHash)
	}
	if got.ResetToken != nil {
		t.Fatal("expected reset slot to be cleared")
	}

	if err := repo.ConsumePasswordResetToken(ctx, "u1", "fp-r", "otherhash"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on second consume, got %v", err)
	}
}

func TestUserRepository_ConsumeEmailChangeToken(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	mustCreate(t, repo, newTestUser("u1", "old@example.com"))

	slot := domain.TokenSlot{Fingerprint: "fp-c", ExpiresAt: time.Now().Add(10 * time.Minute).UTC()}
	if err := repo.SetTokenSlot(ctx, "u1", domain.TokenEmailChange, slot, "new@example.com"); err != nil {
		t.Fatalf("SetTokenSlot: %v", err)
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PendingEmail != "new@example.com" {
		t.Fatalf("expected pending email, got %q", got.PendingEmail)
	}

	if err := repo.ConsumeEmailChangeToken(ctx, "u1", "fp-c", "new@example.com"); err != nil {
		t.Fatalf("ConsumeEmailChangeToken: %v", err)
	}

	got, err = repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "new@example.com" {
		t.Fatalf("expected swapped email, got %s", got.Email)
	}
	if !got.EmailVerified {
		t.Fatal("expected email to be verified after change")
	}
	if got.PendingEmail != "" || got.EmailChangeToken != nil {
		t.Fatal("expected pending email and slot to be cleared")
	}
}

func TestUserRepository_ConsumeEmailChangeToken_Collision(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	mustCreate(t, repo, newTestUser("u1", "alice@example.com"))
	mustCreate(t, repo, newTestUser("u2", "bob@example.com"))

	slot := domain.TokenSlot{Fingerprint: "fp-c", ExpiresAt: time.Now().Add(10 * time.Minute).UTC()}
	if err := repo.SetTokenSlot(ctx, "u1", domain.TokenEmailChange, slot, "bob@example.com"); err != nil {
		t.Fatalf("SetTokenSlot: %v", err)
	}

	// bob@example.com was taken between request and verification.
	err := repo.ConsumeEmailChangeToken(ctx, "u1", "fp-c", "bob@example.com")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	mustCreate(t, repo, newTestUser("u1", "gone@example.com"))

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
