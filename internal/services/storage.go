package services

import (
	"context"
	"io"
	"time"
)

// StorageService defines the interface for ticket document storage
type StorageService interface {
	// Upload stores the object and returns a URL it can be fetched from
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error)

	// Delete removes an object from storage
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for an object
	GetURL(key string) string

	// GeneratePresignedURL returns a time limited download URL
	GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)

	// Exists checks if an object exists in storage
	Exists(ctx context.Context, key string) (bool, error)
}
