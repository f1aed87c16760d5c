// Package storage keeps exported vector store snapshots on the local disk or
// in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"campus-assistant/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// Storage interface for snapshot storage operations
type Storage interface {
	// Upload stores data under key, replacing any previous object
	Upload(ctx context.Context, key string, data io.Reader) error

	// Download retrieves the object stored under key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error
}

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// NewStorage creates the backend selected by cfg.Storage.
func NewStorage(ctx context.Context, cfg config.SnapshotConfig) (Storage, error) {
	switch StorageType(cfg.Storage) {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3_bucket is required for S3 storage")
		}
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage)
	}
}
