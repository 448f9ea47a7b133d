package storage

import (
	"context"
	"errors"
	"io"
)

// ImmutableCacheControl is served for every object; keys are never rewritten.
const ImmutableCacheControl = "public, max-age=31536000, immutable"

var (
	// ErrObjectNotFound is returned by Get when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrUnavailable signals the store is refusing writes (circuit open).
	ErrUnavailable = errors.New("object store unavailable")
)

// Object is a readable stored asset. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ETag        string
}

// ObjectStore is the durable asset surface used by ingestion, transcoding and the proxy read path.
type ObjectStore interface {
	// Put uploads localPath under key and removes localPath afterwards, whether or not the write succeeded.
	Put(ctx context.Context, localPath, key, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
