// Package core defines core abstractions for blob storage backends
// used internally by higher-level services.
package core

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 compatible implementation using the AWS SDK.
	DriverS3 Driver = "s3"
	// DriverMinio represents an S3 compatible implementation using the MinIO client.
	DriverMinio Driver = "minio"
	// DriverSQLite stores blobs as rows of an embedded SQLite database.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores blobs as rows of a PostgreSQL table.
	DriverPostgres Driver = "postgres"
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Method  string        // GET|PUT (currently only GET used internally)
	Expiry  time.Duration // default 15m
	Headers map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store provides a thin S3-like abstraction used by higher layers. Get and
// Head return an error wrapping ErrNotExist for missing keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("blobstore: unsupported operation")

// ErrNotExist is wrapped by every backend when a key is missing.
var ErrNotExist = fs.ErrNotExist

// ContentTypeFor guesses a content type from a key's extension.
func ContentTypeFor(key string) string {
	switch {
	case hasSuffix(key, ".csv"):
		return "text/csv"
	case hasSuffix(key, ".json"):
		return "application/json"
	case hasSuffix(key, ".zst"):
		return "application/zstd"
	case hasSuffix(key, ".lz4"):
		return "application/x-lz4"
	case hasSuffix(key, ".bin"):
		return "application/octet-stream"
	default:
		return ""
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
