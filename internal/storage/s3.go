package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// BlobStore uploads user-supplied files (covers, PDFs, post images) and
// returns their public URL.
type BlobStore interface {
	Upload(ctx context.Context, folder, filename string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Config carries the S3 connection settings.
type Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Endpoint     string // non-empty for MinIO or another S3-compatible store
	UsePathStyle bool
	PublicURL    string // base URL objects are served from
}

type s3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store creates a BlobStore backed by S3 or an S3-compatible endpoint.
func NewS3Store(cfg Config) (BlobStore, error) {
	ctx := context.Background()

	var awsCfg aws.Config
	var err error
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey, cfg.SecretKey, "",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &s3Store{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// Upload stores the bytes under a random key in the folder, keeping the
// original extension, and returns the public URL.
func (s *s3Store) Upload(ctx context.Context, folder, filename string, data []byte, contentType string) (string, error) {
	key := path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(filename)))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

// Delete removes the object a previously returned URL points at. Unknown
// URLs are ignored.
func (s *s3Store) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.publicURL+"/") {
		return nil
	}
	key := strings.TrimPrefix(url, s.publicURL+"/")
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}
