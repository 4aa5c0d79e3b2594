package watch

import (
	"context"
	"time"
)

// Fetcher performs a single timed HTTP exchange.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Hasher computes content digests for change detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time and sleeps (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Notifier delivers a human-readable message to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Archiver submits URLs to the web archive.
type Archiver interface {
	ArchiveAll(ctx context.Context, urls []string)
}

// SnapshotChecker reports whether an archived snapshot of a URL is recent.
type SnapshotChecker interface {
	RecentSnapshot(ctx context.Context, url string, maxAge time.Duration) (bool, string)
}

// Publisher pushes change events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes raw page captures and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Pacer blocks until an outbound request to url may proceed.
type Pacer interface {
	Wait(ctx context.Context, url string) error
}

// IDGenerator produces change event IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
