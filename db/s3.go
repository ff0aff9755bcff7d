package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// CloudRepositoryConfig configures an S3-backed repository.
type CloudRepositoryConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint, e.g. for MinIO
	Key      string // fixed object key the blob is stored under
}

// CloudRepository persists the auditor's blob as a single object in an
// S3-compatible bucket, under a fixed key.
type CloudRepository struct {
	client *s3.Client
	bucket string
	key    string
}

// NewCloudRepository loads AWS configuration for the given region and
// returns a repository backed by the configured bucket and key.
func NewCloudRepository(ctx context.Context, cfg CloudRepositoryConfig) (*CloudRepository, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}
	client := s3.NewFromConfig(awsCfg, clientOpts)

	return &CloudRepository{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (r *CloudRepository) Get(ctx context.Context) ([]byte, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading cloud repository: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cloud repository body: %w", err)
	}
	return data, nil
}

func (r *CloudRepository) Put(ctx context.Context, data []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("writing cloud repository: %w", err)
	}
	return nil
}
