// Package storage provides object storage for invoice documents.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	infraconfig "github.com/portal/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ invoicingapp.DocumentStore = (*S3DocumentStore)(nil)

// ErrEmptyFile is returned by Put for a file without content
var ErrEmptyFile = errors.New("file is empty")

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// S3DocumentStore implements DocumentStore using AWS S3 SDK v2.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3DocumentStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	logger        *zap.Logger
	now           func() time.Time
}

// S3DocumentStoreOption is a functional option for configuring S3DocumentStore
type S3DocumentStoreOption func(*S3DocumentStore)

// WithLogger sets a custom logger for S3DocumentStore
func WithLogger(logger *zap.Logger) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for key timestamps
func WithClock(now func() time.Time) S3DocumentStoreOption {
	return func(s *S3DocumentStore) {
		s.now = now
	}
}

// NewS3DocumentStore creates a new S3DocumentStore from configuration.
// Static credentials are used when configured, otherwise the default AWS chain.
func NewS3DocumentStore(cfg *infraconfig.StorageConfig, opts ...S3DocumentStoreOption) (*S3DocumentStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3DocumentStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// normalizeEndpoint adds a scheme to custom endpoints. An empty endpoint
// means the regional AWS endpoint.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// ObjectKey builds "<folder>/<unix millis>-<sanitized name>"
func ObjectKey(folder, name string, at time.Time) string {
	safe := unsafeKeyChars.ReplaceAllString(name, "_")
	return strings.TrimSuffix(folder, "/") + "/" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + safe
}

// CleanKey turns a legacy full URL into its object key; plain keys are returned as is
func CleanKey(key string) string {
	if !strings.HasPrefix(key, "http") {
		return key
	}
	u, err := url.Parse(key)
	if err != nil || u.Path == "" {
		return key
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Put uploads the file and returns the object key
func (s *S3DocumentStore) Put(ctx context.Context, file invoicingapp.File, folder string) (string, error) {
	if len(file.Data) == 0 {
		return "", ErrEmptyFile
	}
	key := ObjectKey(folder, file.Name, s.now())

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("Failed to upload document",
			zap.String("key", key),
			zap.String("file_name", file.Name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}
	return key, nil
}

// Presign returns a GET URL valid for ttl. Failures are logged and yield "".
func (s *S3DocumentStore) Presign(ctx context.Context, key string, ttl time.Duration) string {
	if key == "" {
		return ""
	}
	key = CleanKey(key)

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.Warn("Failed to presign document", zap.String("key", key), zap.Error(err))
		return ""
	}
	return req.URL
}

// Delete removes the object. S3 reports success for keys that don't exist.
func (s *S3DocumentStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	key = CleanKey(key)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Used at startup against local S3-compatible stores.
func (s *S3DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *S3DocumentStore) Bucket() string {
	return s.bucket
}
