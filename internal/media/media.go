// Package media turns stored image reference paths into URLs clients can
// fetch. Image bytes are never read or written here.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/safar/storefront/internal/config"
)

type Resolver interface {
	URL(ctx context.Context, path string) (string, error)
}

// New returns an S3 presigner when a bucket is configured and a static
// resolver otherwise.
func New(ctx context.Context, cfg config.MediaConfig) (Resolver, error) {
	if cfg.S3Bucket == "" {
		return Static{BaseURL: cfg.BaseURL}, nil
	}
	return NewS3(ctx, cfg)
}

// Static joins paths onto a fixed base URL.
type Static struct {
	BaseURL string
}

func (s Static) URL(_ context.Context, path string) (string, error) {
	if path == "" || isAbsolute(path) {
		return path, nil
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"), nil
}

// S3 presigns GET requests for objects in one bucket.
type S3 struct {
	presign    *s3.PresignClient
	bucket     string
	expiration time.Duration
}

func NewS3(ctx context.Context, cfg config.MediaConfig) (*S3, error) {
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, errors.New("media: s3 access key and secret key are required")
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	expiration := cfg.PresignExpiration
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}

	return &S3{
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.S3Bucket,
		expiration: expiration,
	}, nil
}

func (s *S3) URL(ctx context.Context, path string) (string, error) {
	if path == "" || isAbsolute(path) {
		return path, nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimLeft(path, "/")),
	}, s3.WithPresignExpires(s.expiration))
	if err != nil {
		return "", fmt.Errorf("media: presign %s: %w", path, err)
	}
	return req.URL, nil
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
