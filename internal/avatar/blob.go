package avatar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/stacksignal/lms-accounts/internal/domain"
)

// BlobStore keeps avatars as SQLite blobs and serves them through the
// application's own avatar endpoint. Intended for local development and
// single-node deployments.
type BlobStore struct {
	db      *sql.DB
	baseURL string
}

// NewBlobStore creates a BlobStore. baseURL is the public prefix the
// avatar handler is mounted under, e.g. "http://localhost:8080".
func NewBlobStore(db *sql.DB, baseURL string) *BlobStore {
	return &BlobStore{db: db, baseURL: baseURL}
}

func (s *BlobStore) Upload(ctx context.Context, data []byte, contentType string) (string, string, error) {
	key := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO avatar_blobs (storage_key, content_type, data) VALUES (?, ?, ?)",
		key, contentType, data,
	)
	if err != nil {
		return "", "", fmt.Errorf("save avatar blob: %w", err)
	}

	return key, s.baseURL + "/api/v1/users/avatar/" + key, nil
}

// Get returns the blob bytes and content type for a storage key. Used
// by the avatar-serving handler.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, content_type FROM avatar_blobs WHERE storage_key = ?", key,
	).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("get avatar blob: %w", err)
	}
	return data, contentType, nil
}

func (s *BlobStore) Delete(ctx context.Context, publicID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM avatar_blobs WHERE storage_key = ?", publicID,
	)
	if err != nil {
		return fmt.Errorf("delete avatar blob: %w", err)
	}
	return nil
}
