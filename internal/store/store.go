// Package store adapts the object store used for large uploads. The
// caller uploads a blob out of band and hands the pipeline a storage
// path; the pipeline downloads it here and deletes the object when the
// extraction finishes, success or not.
package store

import (
	"context"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

// Store wraps one bucket of the object store.
type Store struct {
	client *storage.Client
	bucket string
	log    *slog.Logger
}

// New creates the store adapter for the given bucket.
func New(ctx context.Context, bucket string, log *slog.Logger, opts ...option.ClientOption) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "create storage client")
	}
	return &Store{client: client, bucket: bucket, log: log}, nil
}

// Download reads the full object at key.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "open storage object %q", key)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "read storage object %q", key)
	}
	return data, nil
}

// Delete removes the object at key, best-effort: failures are logged,
// never propagated.
func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		s.log.Warn("storage object cleanup failed", "key", key, "error", err)
	}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}
