package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	appconfig "event-checkout/internal/config"
)

// R2Service keeps ticket documents in a private Cloudflare R2 bucket.
// Attendees reach them through presigned links.
type R2Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   *string
	cfg      appconfig.R2Config
	log      logrus.FieldLogger
}

// NewR2Service creates an S3 client pointed at the account's R2 endpoint.
func NewR2Service(ctx context.Context, cfg appconfig.R2Config, log logrus.FieldLogger) (*R2Service, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("R2 credentials not configured")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := r2Endpoint(cfg)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Service{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   aws.String(cfg.BucketName),
		cfg:      cfg,
		log:      log.WithFields(logrus.Fields{"component": "r2", "bucket": cfg.BucketName}),
	}, nil
}

func r2Endpoint(cfg appconfig.R2Config) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
}

func objectKey(key string) *string {
	return aws.String(strings.TrimPrefix(key, "/"))
}

// Upload stores a ticket document. Downloads are served as attachments
// named after the last key segment.
func (r *R2Service) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	k := objectKey(key)

	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:             r.bucket,
		Key:                k,
		Body:               reader,
		ContentType:        aws.String(contentType),
		ContentLength:      aws.Int64(size),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(*k))),
		CacheControl:       aws.String("private, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to R2: %w", *k, err)
	}

	r.log.WithField("key", *k).Debug("ticket document uploaded")
	return r.GetURL(*k), nil
}

// Delete removes an object; deleting a missing key succeeds.
func (r *R2Service) Delete(ctx context.Context, key string) error {
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: r.bucket, Key: objectKey(key)}); err != nil {
		return fmt.Errorf("failed to delete %s from R2: %w", key, err)
	}
	return nil
}

// GetURL is the public URL of the object. It only resolves when the bucket
// is exposed through R2_PUBLIC_URL or the r2.dev domain.
func (r *R2Service) GetURL(key string) string {
	k := *objectKey(key)
	if r.cfg.PublicURL != "" {
		return strings.TrimSuffix(r.cfg.PublicURL, "/") + "/" + k
	}
	return fmt.Sprintf("https://pub-%s.r2.dev/%s", r.cfg.AccountID, k)
}

// GeneratePresignedURL signs a GET for the object valid for expiration.
func (r *R2Service) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	req, err := r.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: r.bucket, Key: objectKey(key)},
		s3.WithPresignExpires(expiration),
	)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Exists reports whether the object is in the bucket.
func (r *R2Service) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: r.bucket, Key: objectKey(key)})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %s in R2: %w", key, err)
}

// CreateBucket creates the bucket; an existing bucket is not an error.
func (r *R2Service) CreateBucket(ctx context.Context) error {
	_, err := r.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: r.bucket})

	var exists *types.BucketAlreadyExists
	var owned *types.BucketAlreadyOwnedByYou
	switch {
	case err == nil:
		r.log.Info("bucket created")
		return nil
	case errors.As(err, &exists), errors.As(err, &owned):
		return nil
	default:
		return fmt.Errorf("failed to create bucket %s: %w", r.cfg.BucketName, err)
	}
}

// HealthCheck lists at most one key to prove the bucket is reachable.
func (r *R2Service) HealthCheck(ctx context.Context) error {
	if _, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: r.bucket, MaxKeys: aws.Int32(1)}); err != nil {
		return fmt.Errorf("R2 health check failed: %w", err)
	}
	return nil
}
