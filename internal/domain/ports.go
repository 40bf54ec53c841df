package domain

import "context"

// Notifier delivers outbound email. Any non-nil error is treated by the
// flows as a notification failure.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// AvatarStore holds externally stored avatar images. Upload returns an
// opaque public id (used later for deletion) and a URL serving the
// image. Failures here must never corrupt credential state.
type AvatarStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (publicID, url string, err error)
	Delete(ctx context.Context, publicID string) error
}

// Database defines lifecycle operations for the underlying database.
// Each implementation owns its own migration files and strategy.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
