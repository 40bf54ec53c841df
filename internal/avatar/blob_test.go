package avatar_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stacksignal/lms-accounts/internal/avatar"
	"github.com/stacksignal/lms-accounts/internal/domain"
	"github.com/stacksignal/lms-accounts/internal/repository/sqlite"
)

func newBlobStore(t *testing.T) *avatar.BlobStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return avatar.NewBlobStore(db.SqlDB, "http://localhost:8080")
}

func TestBlobStore_UploadAndGet(t *testing.T) {
	store := newBlobStore(t)
	ctx := context.Background()

	data := []byte("fake-png-bytes")
	publicID, url, err := store.Upload(ctx, data, "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if publicID == "" {
		t.Fatal("expected public id")
	}
	if !strings.HasSuffix(url, "/api/v1/users/avatar/"+publicID) {
		t.Fatalf("unexpected url %s", url)
	}

	got, contentType, err := store.Get(ctx, publicID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Fatal("expected stored bytes to round-trip")
	}
	if contentType != "image/png" {
		t.Fatalf("expected image/png, got %s", contentType)
	}
}

func TestBlobStore_Delete(t *testing.T) {
	store := newBlobStore(t)
	ctx := context.Background()

	publicID, _, err := store.Upload(ctx, []byte("bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := store.Delete(ctx, publicID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Get(ctx, publicID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
