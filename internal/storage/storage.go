package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service stores snapshot objects in remote object storage.
type Service interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}
