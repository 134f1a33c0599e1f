// Package storage archives match outputs in an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"
)

var (
	// ErrNotConfigured is returned when storage is used without an endpoint.
	ErrNotConfigured = errors.New("object storage not configured")
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("object not found")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size is the exact number of bytes, or -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ETag         string            `json:"etag"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Storage is an S3-compatible object store.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// UploadFile streams the local file at src to key, with a content type
// derived from the file extension.
func UploadFile(ctx context.Context, s Storage, key, src string, metadata map[string]string) (ObjectInfo, error) {
	if s == nil {
		return ObjectInfo{}, ErrNotConfigured
	}
	f, err := os.Open(src)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", src, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(src))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.Put(ctx, key, f, PutObjectOptions{Size: st.Size(), ContentType: contentType, Metadata: metadata})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return info, nil
}

// Key joins a run prefix and a file's base name into an object key.
func Key(prefix, file string) string {
	return path.Join(prefix, filepath.Base(file))
}
