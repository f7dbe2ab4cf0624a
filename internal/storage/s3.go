package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/avery/hireflow/pkg/config"
	"github.com/avery/hireflow/pkg/crypto"
)

// S3Store stores encrypted resumes in an S3 bucket and hands out presigned
// download URLs.
type S3Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

func NewS3Store(ctx context.Context, cfg *config.StorageConfig, encryptor *crypto.Encryptor, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		encryptor: encryptor,
		logger:    logger,
	}, nil
}

func (s *S3Store) Store(ctx context.Context, data []byte, contentType string) (*Object, error) {
	ciphertext, err := s.encryptor.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("encrypting resume: %w", err)
	}

	key := "resumes/" + uuid.New().String()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(ciphertext),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading resume: %w", err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return nil, fmt.Errorf("presigning resume url: %w", err)
	}

	s.logger.Debug("resume stored", "key", key, "bytes", len(ciphertext))
	return &Object{Key: key, URL: req.URL}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting resume %s: %w", key, err)
	}
	return nil
}

var _ ResumeStore = (*S3Store)(nil)
