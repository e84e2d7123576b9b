package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/liquidinsider/storefront-api/internal/config"
)

// S3Storage writes renditions to a bucket under
// products/<productID>/<variant>/<file>, server-side encrypted. When a
// CDN URL is configured, returned URLs point at the CDN instead of the
// bucket endpoint.
type S3Storage struct {
	client *s3.Client
	bucket string
	region string
	cdnURL string
}

func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required for s3 storage")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Storage{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		region: cfg.S3Region,
		cdnURL: cfg.S3CDNURL,
	}, nil
}

func objectKey(productID int64, variant, fileName string) string {
	return fmt.Sprintf("products/%d/%s/%s", productID, variant, fileName)
}

func (s *S3Storage) Save(ctx context.Context, productID int64, variant, fileName string, data []byte, contentType string) (string, error) {
	key := objectKey(productID, variant, fileName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", key, err)
	}

	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *S3Storage) Delete(ctx context.Context, productID int64, variant, fileName string) error {
	key := objectKey(productID, variant, fileName)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3 object %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) Type() string { return "s3" }
