// Package core defines the storage abstraction behind report and dataset
// exports. Backends are content-addressed by caller-chosen keys; writes are
// create-only so an exported document can never be silently replaced.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	// DriverFilesystem stores blobs under a local directory root.
	DriverFilesystem Driver = "fs"
	// DriverS3 targets S3 or an S3-compatible service such as MinIO.
	DriverS3 Driver = "s3"
	// DriverMemory keeps blobs in process memory, for tests.
	DriverMemory Driver = "memory"
)

// Info describes one stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// PutOptions carries the optional attributes of a write.
type PutOptions struct {
	// ContentType is the MIME type recorded with the blob.
	ContentType string
	// Metadata holds small flat key-value pairs stored alongside the blob.
	Metadata map[string]string
}

// SignedURLOptions configures PresignURL.
type SignedURLOptions struct {
	// Method is the HTTP method the URL authorizes; defaults to GET.
	Method string
	// Expiry bounds the URL lifetime; defaults to 15 minutes.
	Expiry  time.Duration
	Headers map[string]string
}

// Store is the backend contract. Put fails when the key already exists:
// exported reports and dataset snapshots are immutable once written.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ErrUnsupported is returned when a driver lacks an optional capability.
var ErrUnsupported = errors.New("blobstore: unsupported operation")
