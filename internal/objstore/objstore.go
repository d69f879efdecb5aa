// Package objstore stores produced artifacts (audio, images, rendered
// videos) in a MinIO-compatible object store. References handed between
// pipeline stages are object names within the configured bucket; downstream
// services fetch them back to local scratch space before processing.
package objstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
)

// Store wraps a bucket in a MinIO-compatible object store.
type Store struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
	logger    *slog.Logger
}

// New connects to the configured endpoint and ensures the bucket exists.
func New(ctx context.Context, cfg config.Storage, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("objstore: endpoint required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("objstore: bucket required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: connect %s: %w", cfg.Endpoint, err)
	}
	store := &Store{
		client:    client,
		bucket:    cfg.Bucket,
		urlExpiry: time.Duration(cfg.URLExpiryHours) * time.Hour,
		logger:    logger,
	}
	if store.urlExpiry <= 0 {
		store.urlExpiry = 24 * time.Hour
	}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("objstore: check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("objstore: create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("bucket created", logging.String("bucket", s.bucket))
	return nil
}

// PutFile uploads a local file and returns the object name used as its
// stage artifact reference.
func (s *Store) PutFile(ctx context.Context, objectName, filePath string) (string, error) {
	if _, err := s.client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentTypeFor(objectName),
	}); err != nil {
		return "", fmt.Errorf("objstore: upload %s: %w", objectName, err)
	}
	s.logger.Debug("object uploaded",
		logging.String("bucket", s.bucket),
		logging.String("object", objectName))
	return objectName, nil
}

// PutReader uploads streamed data. size may be -1 when unknown.
func (s *Store) PutReader(ctx context.Context, objectName string, reader io.Reader, size int64) (string, error) {
	if _, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(objectName),
	}); err != nil {
		return "", fmt.Errorf("objstore: upload %s: %w", objectName, err)
	}
	return objectName, nil
}

// FetchFile downloads an object to destPath.
func (s *Store) FetchFile(ctx context.Context, objectName, destPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, objectName, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("objstore: fetch %s: %w", objectName, err)
	}
	return nil
}

// PresignedURL returns a time-limited GET URL for sharing an artifact
// outside the pipeline.
func (s *Store) PresignedURL(ctx context.Context, objectName string) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.urlExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("objstore: presign %s: %w", objectName, err)
	}
	return signed.String(), nil
}

// Remove deletes an object. Missing objects are not an error.
func (s *Store) Remove(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("objstore: remove %s: %w", objectName, err)
	}
	return nil
}

func contentTypeFor(objectName string) string {
	switch filepath.Ext(objectName) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".srt", ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
