package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"event-checkout/internal/config"
)

// NewStorageService creates the ticket document storage: R2 with a local
// fallback when R2 is configured and reachable, local disk otherwise. The
// second result is the local store so callers can serve its files.
func NewStorageService(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (StorageService, *FallbackStorageService, error) {
	local, err := NewFallbackStorageService(cfg.R2.LocalDir, cfg.R2.LocalBaseURL, log)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.R2Configured() {
		log.Info("R2 not configured, storing tickets on local disk")
		return local, local, nil
	}

	r2, err := NewR2Service(ctx, cfg.R2, log)
	if err != nil {
		log.WithError(err).Warn("R2 service unavailable, using local storage only")
		return local, local, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r2.HealthCheck(checkCtx); err != nil {
		log.WithError(err).Warn("R2 health check failed, using local storage only")
		return local, local, nil
	}

	log.WithField("bucket", cfg.R2.BucketName).Info("R2 storage service initialized")
	return NewStorageServiceWithFallback(r2, local, log), local, nil
}

// SetupR2Bucket creates the configured bucket if it is missing
func SetupR2Bucket(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	r2, err := NewR2Service(ctx, cfg.R2, log)
	if err != nil {
		return fmt.Errorf("failed to create R2 service: %w", err)
	}
	if err := r2.CreateBucket(ctx); err != nil {
		return fmt.Errorf("failed to create R2 bucket: %w", err)
	}
	return nil
}
