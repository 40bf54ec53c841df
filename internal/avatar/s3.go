// Package avatar provides the stores that hold user avatar images
// outside the credential records: an S3-compatible object store for
// deployments and a SQLite blob store for local development.
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Options configures the object-storage backend. BaseEndpoint is
// used for S3-compatible services such as MinIO; PublicBaseURL is the
// prefix under which uploaded objects are reachable.
type S3Options struct {
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	BaseEndpoint  string
	PublicBaseURL string
}

// S3Store stores avatars in an S3-compatible bucket. The public id is
// the object key.
type S3Store struct {
	client *s3.Client
	bucket string
	public string
}

// NewS3Store builds the S3 client from static credentials and an
// optional custom endpoint.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	public := strings.TrimSuffix(opts.PublicBaseURL, "/")
	if public == "" {
		public = strings.TrimSuffix(opts.BaseEndpoint, "/") + "/" + opts.Bucket
	}

	return &S3Store{client: client, bucket: opts.Bucket, public: public}, nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, contentType string) (string, string, error) {
	key := storageKey()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("put avatar object: %w", err)
	}

	return key, s.public + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("delete avatar object: %w", err)
	}
	return nil
}

// storageKey spreads objects by date so buckets stay listable.
func storageKey() string {
	d := time.Now()
	return fmt.Sprintf("avatars/%d/%02d/%v", d.Year(), d.Month(), uuid.New())
}
