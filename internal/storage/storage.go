// Package storage provides the object store that holds table snapshots.
package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// Object is a stored blob together with its user metadata.
type Object struct {
	Path     string
	Data     []byte
	Metadata map[string]string
	ModTime  time.Time
}

// ObjectStorage abstracts the snapshot object store.
// Implementations are the local filesystem and S3.
type ObjectStorage interface {
	// Put replaces the object at objectPath. Readers never observe a
	// partially written object.
	Put(ctx context.Context, objectPath string, data []byte, metadata map[string]string) error

	// Get returns the object at objectPath or ErrObjectNotFound.
	Get(ctx context.Context, objectPath string) (*Object, error)

	Delete(ctx context.Context, objectPath string) error

	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
