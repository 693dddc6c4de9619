package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/spec-kit/helpdesk/internal/config"
)

const s3Scheme = "s3://"

// S3Store keeps objects in one bucket of an S3-compatible service.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store connects and creates the bucket if it does not exist.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
		return nil, errors.New("S3_ENDPOINT and S3_BUCKET are required for the s3 backend")
	}
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}
	return &S3Store{client: client, bucket: cfg.S3Bucket}, nil
}

// Save uploads r. A negative size streams with multipart upload.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return objectPath(s.bucket, name), nil
}

// Open streams the object at path.
func (s *S3Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	name, ok := parseObjectPath(s.bucket, path)
	if !ok {
		return nil, ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapS3Error(err)
	}
	// GetObject is lazy; Stat surfaces a missing key before bytes are served.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapS3Error(err)
	}
	return obj, nil
}

// Remove deletes the object at path.
func (s *S3Store) Remove(ctx context.Context, path string) error {
	name, ok := parseObjectPath(s.bucket, path)
	if !ok {
		return ErrNotFound
	}
	return mapS3Error(s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}))
}

func objectPath(bucket, name string) string {
	return s3Scheme + bucket + "/" + name
}

func parseObjectPath(bucket, path string) (string, bool) {
	prefix := s3Scheme + bucket + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(path, prefix)
	return name, validName(name) == nil
}

func mapS3Error(err error) error {
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
