// Package r2 mirrors downloaded artifacts to Cloudflare R2.
package r2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dustin/go-humanize"
)

// KeyPrefix is prepended to every mirrored object key.
const KeyPrefix = "artifacts/"

// ErrIncompleteConfig is returned when a required R2 setting is missing.
var ErrIncompleteConfig = errors.New("incomplete R2 configuration")

// Config holds configuration for the R2 mirror.
type Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string // Overrides the account endpoint
}

// Enabled reports whether enough settings are present to build a Mirror.
func (c *Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

// Mirror copies artifacts from the download directory to an R2 bucket and
// hands out presigned URLs for them.
type Mirror struct {
	s3Client   *s3.Client
	bucketName string
}

// NewMirror creates a Mirror.
func NewMirror(ctx context.Context, cfg *Config) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, ErrIncompleteConfig
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	slog.Info("R2 mirror initialized",
		"bucket", cfg.BucketName,
		"endpoint", endpoint,
	)

	return &Mirror{
		s3Client:   s3Client,
		bucketName: cfg.BucketName,
	}, nil
}

// Key returns the object key used for a local artifact path.
func Key(path string) string {
	return KeyPrefix + filepath.Base(path)
}

// Exists reports whether key is already in the bucket.
func (m *Mirror) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucketName),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object: %w", err)
}

// Put uploads the artifact at path and returns its key. Artifacts are never
// rewritten, so an existing object is left alone.
func (m *Mirror) Put(ctx context.Context, path string) (string, error) {
	key := Key(path)

	exists, err := m.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		slog.Debug("Artifact already mirrored", "key", key)
		return key, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	contentType := ContentType(path)
	_, err = m.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	slog.Info("Artifact mirrored to R2",
		"key", key,
		"size", humanize.IBytes(uint64(info.Size())),
		"content_type", contentType,
	)
	return key, nil
}

// PresignedURL returns a time-limited download URL for key.
func (m *Mirror) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(m.s3Client)

	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucketName),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	slog.Debug("Generated presigned URL", "key", key, "expires_in", expiry)
	return request.URL, nil
}

// ContentType returns the MIME type for an artifact extension.
func ContentType(path string) string {
	switch filepath.Ext(path) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".m4a":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
