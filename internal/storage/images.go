package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/sparklabs/spark-backend/internal/config"
)

// ImageStore is the external binary object store for profile images.
type ImageStore interface {
	// Store uploads the image and returns its public URL and the reference
	// key needed to delete it later.
	Store(ctx context.Context, data []byte, contentType string) (url string, key string, err error)
	// Delete removes a previously stored object.
	Delete(ctx context.Context, key string) error
}

// S3ImageStore stores profile images in an S3 bucket under uuid-based keys.
type S3ImageStore struct {
	client *s3.Client
	bucket string
	region string
	prefix string
}

func NewS3ImageStore(ctx context.Context, cfg *config.Config) (*S3ImageStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &S3ImageStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3.Bucket,
		region: cfg.S3.Region,
		prefix: cfg.S3.KeyPrefix,
	}, nil
}

func (s *S3ImageStore) Store(ctx context.Context, data []byte, contentType string) (string, string, error) {
	key := s.prefix + uuid.NewString()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to store image: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	return url, key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", key, err)
	}
	return nil
}
