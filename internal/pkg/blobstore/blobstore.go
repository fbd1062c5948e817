// Package blobstore stores uploaded files in named buckets behind public URLs.
package blobstore

import (
	"context"
	"path"
	"strings"
	"time"

	"emperror.dev/errors"
)

const (
	ErrObjectExists = errors.Sentinel("object already exists")
	ErrInvalidPath  = errors.Sentinel("invalid object path")
	ErrNotFound     = errors.Sentinel("object not found")
)

// StorageError wraps any failure reported by a blob store.
type StorageError struct {
	Op     string
	Bucket string
	Path   string
	Err    error
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + " " + e.Bucket + "/" + e.Path + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err came from a blob store.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// PutOptions controls a single upload.
type PutOptions struct {
	Overwrite    bool
	ContentType  string
	CacheControl string
}

// Object describes a stored blob.
type Object struct {
	Bucket       string    `json:"bucket"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the storage collaborator.
type Store interface {
	Put(ctx context.Context, bucket, objectPath string, data []byte, opts PutOptions) (Object, error)
	Get(ctx context.Context, bucket, objectPath string) ([]byte, error)
	PublicURL(bucket, objectPath string) string
	Remove(ctx context.Context, bucket string, paths ...string) error
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
}

// CleanPath normalizes an object key and rejects traversal.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", errors.WithStack(ErrInvalidPath)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.WithStack(ErrInvalidPath)
	}
	return cleaned, nil
}

func wrap(op, bucket, p string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Bucket: bucket, Path: p, Err: errors.WithStack(err)}
}
