package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/config"
)

func newLocalStorage(t *testing.T) (*FallbackStorageService, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFallbackStorageService(dir, "http://localhost:5000/tickets/", quietLogger())
	require.NoError(t, err)
	return s, dir
}

func TestFallbackStorageService_UploadAndExists(t *testing.T) {
	s, dir := newLocalStorage(t)
	ctx := context.Background()
	content := "ticket content"

	url, err := s.Upload(ctx, "/tickets/order_1/a.pdf", strings.NewReader(content), "application/pdf", int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/tickets/tickets/order_1/a.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "tickets", "order_1", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	ok, err := s.Exists(ctx, "tickets/order_1/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	signed, err := s.GeneratePresignedURL(ctx, "tickets/order_1/a.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, url, signed)
}

func TestFallbackStorageService_SizeMismatch(t *testing.T) {
	s, _ := newLocalStorage(t)

	_, err := s.Upload(context.Background(), "a.pdf", strings.NewReader("abc"), "application/pdf", 10)
	assert.ErrorContains(t, err, "size mismatch")
}

func TestFallbackStorageService_KeysStayInsideBase(t *testing.T) {
	s, dir := newLocalStorage(t)

	_, err := s.Upload(context.Background(), "../../escape.pdf", strings.NewReader("x"), "application/pdf", 1)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.pdf"))
	assert.NoError(t, err)

	_, err = s.Upload(context.Background(), "/", strings.NewReader("x"), "application/pdf", 1)
	assert.Error(t, err)
}

func TestFallbackStorageService_DeleteCleansEmptyDirs(t *testing.T) {
	s, dir := newLocalStorage(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "tickets/order_1/a.pdf", strings.NewReader("x"), "application/pdf", 1)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "tickets/order_1/a.pdf"))

	_, err = os.Stat(filepath.Join(dir, "tickets"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(dir)
	assert.NoError(t, err, "base directory is kept")

	assert.NoError(t, s.Delete(ctx, "tickets/missing.pdf"))
}

// brokenStorage fails every upload after draining part of the reader.
type brokenStorage struct {
	FallbackStorageService
}

func (b *brokenStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	_, _ = io.CopyN(io.Discard, reader, 2)
	return "", errors.New("r2 unavailable")
}

func (b *brokenStorage) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("r2 unavailable")
}

func TestStorageServiceWithFallback_UsesFallbackOnFailure(t *testing.T) {
	local, dir := newLocalStorage(t)
	s := NewStorageServiceWithFallback(&brokenStorage{}, local, quietLogger())
	ctx := context.Background()

	url, err := s.Upload(ctx, "tickets/a.pdf", strings.NewReader("full body"), "application/pdf", 9)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/tickets/tickets/a.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "tickets", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "full body", string(data), "reader is rewound before the fallback upload")

	ok, err := s.Exists(ctx, "tickets/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	signed, err := s.GeneratePresignedURL(ctx, "tickets/a.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, url, signed)
}

func TestStorageServiceWithFallback_UnseekableReader(t *testing.T) {
	local, _ := newLocalStorage(t)
	s := NewStorageServiceWithFallback(&brokenStorage{}, local, quietLogger())

	_, err := s.Upload(context.Background(), "a.pdf", io.MultiReader(strings.NewReader("x")), "application/pdf", 1)
	assert.ErrorContains(t, err, "cannot reset reader")
}

func TestNewR2Service(t *testing.T) {
	_, err := NewR2Service(context.Background(), config.R2Config{AccountID: "acc", BucketName: "tickets"}, quietLogger())
	assert.Error(t, err, "credentials are required")

	svc, err := NewR2Service(context.Background(), config.R2Config{
		AccountID:       "acc",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "tickets",
		Region:          "auto",
	}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "https://pub-acc.r2.dev/tickets/a.pdf", svc.GetURL("/tickets/a.pdf"))

	url, err := svc.GeneratePresignedURL(context.Background(), "tickets/a.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "acc.r2.cloudflarestorage.com/tickets/tickets/a.pdf")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestR2Service_GetURLWithPublicURL(t *testing.T) {
	svc, err := NewR2Service(context.Background(), config.R2Config{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "tickets",
		PublicURL:       "https://cdn.example.com/",
		Region:          "auto",
	}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/tickets/a.pdf", svc.GetURL("tickets/a.pdf"))
}

func TestNewStorageService_LocalWhenR2Unconfigured(t *testing.T) {
	cfg := &config.Config{R2: config.R2Config{LocalDir: t.TempDir(), LocalBaseURL: "http://localhost:5000/tickets"}}

	storage, local, err := NewStorageService(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Same(t, local, storage.(*FallbackStorageService))
}
