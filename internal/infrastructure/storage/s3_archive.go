// Package storage archives rendered order documents in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	orderapp "github.com/restohub/backend/internal/application/order"
	"github.com/restohub/backend/internal/domain/integration"
	infraconfig "github.com/restohub/backend/internal/infrastructure/config"
)

var _ orderapp.DocumentArchive = (*S3DocumentArchive)(nil)

// S3DocumentArchive stores order sheets in S3-compatible object storage
// (AWS S3, MinIO, etc.). Keys are namespaced per tenant so one restaurant
// can never read another's order documents.
type S3DocumentArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	keyPrefix         string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3DocumentArchiveOption is a functional option for configuring the archive
type S3DocumentArchiveOption func(*S3DocumentArchive)

// WithLogger sets a custom logger for the archive
func WithLogger(logger *zap.Logger) S3DocumentArchiveOption {
	return func(a *S3DocumentArchive) {
		a.logger = logger
	}
}

// WithPresignExpiration sets a custom presign expiration duration
func WithPresignExpiration(d time.Duration) S3DocumentArchiveOption {
	return func(a *S3DocumentArchive) {
		a.presignExpiration = d
	}
}

// NewS3DocumentArchive creates an archive from configuration. It supports any
// S3-compatible backend; point Endpoint at MinIO for local development.
func NewS3DocumentArchive(cfg *infraconfig.StorageConfig, opts ...S3DocumentArchiveOption) (*S3DocumentArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "ap-southeast-2"
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	archive := &S3DocumentArchive{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		keyPrefix:     strings.Trim(cfg.KeyPrefix, "/"),
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(archive)
	}

	if archive.presignExpiration == 0 {
		archive.presignExpiration = 15 * time.Minute
	}

	return archive, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup so the first order doesn't pay for it.
func (a *S3DocumentArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		// another instance may have won the race
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// Archive stores an order document and returns the storage key it lives
// under. Re-archiving the same order overwrites the previous copy.
func (a *S3DocumentArchive) Archive(ctx context.Context, tenantID uuid.UUID, orderID string, doc *integration.Document) (string, error) {
	if orderID == "" {
		return "", errors.New("order id is required")
	}
	if doc == nil || len(doc.Content) == 0 {
		return "", errors.New("document has no content")
	}

	key := a.archiveKey(tenantID, orderID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc.Content),
		ContentType: aws.String(doc.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive document: %w", err)
	}

	a.logger.Debug("order document archived",
		zap.String("order_id", orderID),
		zap.String("storage_key", key),
		zap.Int("bytes", len(doc.Content)))

	return key, nil
}

// Fetch retrieves an archived document by its storage key
func (a *S3DocumentArchive) Fetch(ctx context.Context, storageKey string) (*integration.Document, error) {
	if storageKey == "" {
		return nil, errors.New("storage key is required")
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}

	contentType := "application/pdf"
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}

	return &integration.Document{
		Filename:    path.Base(storageKey),
		ContentType: contentType,
		Content:     content,
	}, nil
}

// DownloadURL generates a presigned GET URL for an archived document
func (a *S3DocumentArchive) DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = a.presignExpiration
	}

	presignReq, err := a.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}

	return presignReq.URL, time.Now().Add(expiresIn), nil
}

func (a *S3DocumentArchive) archiveKey(tenantID uuid.UUID, orderID string) string {
	return path.Join(a.keyPrefix, "orders", tenantID.String(), orderID+".pdf")
}
