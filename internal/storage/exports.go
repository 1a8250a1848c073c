// Package storage writes report exports to an S3-compatible bucket
// (Cloudflare R2 in production) and hands out presigned download links.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rental-backend/internal/config"
)

// ExportStore is a bucket scoped to the configured export prefix.
type ExportStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	ttl     time.Duration
}

// NewExportStore builds the S3 client. It returns nil when exports are not
// configured.
func NewExportStore(ctx context.Context, cfg config.ExportStorage) (*ExportStore, error) {
	if !cfg.Enabled() {
		log.Printf("[Exports] Bucket not configured, archiving disabled")
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure export storage: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	ttl := time.Duration(cfg.PresignMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &ExportStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		ttl:     ttl,
	}, nil
}

// Key returns the object key for an owner's export file.
func (s *ExportStore) Key(ownerID int, name string) string {
	if s.prefix == "" {
		return fmt.Sprintf("owner-%d/%s", ownerID, name)
	}
	return fmt.Sprintf("%s/owner-%d/%s", s.prefix, ownerID, name)
}

// Put uploads data under key and returns a time-limited download URL.
func (s *ExportStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, time.Time, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign %s: %w", key, err)
	}

	log.Printf("[Exports] Uploaded %s (%d bytes)", key, len(data))
	return req.URL, time.Now().Add(s.ttl), nil
}
