package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/JaimeStill/tally/pkg/lifecycle"
)

type bucket struct {
	client *s3.Client
	name   string
	logger *slog.Logger
}

// newS3 resolves AWS credentials from the default chain. Endpoint targets
// S3-compatible services such as MinIO.
func newS3(cfg *Config, logger *slog.Logger) (*bucket, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &bucket{
		client: client,
		name:   cfg.ContainerName,
		logger: logger,
	}, nil
}

func (b *bucket) Start(lc *lifecycle.Coordinator) error {
	b.logger.Info("starting storage system")

	lc.OnStartup(func() {
		_, err := b.client.HeadBucket(lc.Context(), &s3.HeadBucketInput{
			Bucket: aws.String(b.name),
		})
		if err == nil {
			b.logger.Info("storage bucket ready", "bucket", b.name)
			return
		}

		var nf *types.NotFound
		if !errors.As(err, &nf) {
			b.logger.Error("storage bucket check failed", "error", err)
			return
		}

		if _, err := b.client.CreateBucket(lc.Context(), &s3.CreateBucketInput{
			Bucket: aws.String(b.name),
		}); err != nil {
			b.logger.Error("storage bucket initialization failed", "error", err)
			return
		}

		b.logger.Info("storage bucket created", "bucket", b.name)
	})

	return nil
}

func (b *bucket) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}

func (b *bucket) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	return out.Body, nil
}

// Delete checks existence first since S3 deletes of missing keys succeed silently.
func (b *bucket) Delete(ctx context.Context, key string) error {
	ok, err := b.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

func (b *bucket) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}

	return true, nil
}
