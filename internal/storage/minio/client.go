package minio

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("sigflow/minio")

// Client uploads artifacts to one MinIO bucket.
type Client struct {
	client   *minio.Client
	buckets  bucketAPI
	endpoint string
	bucket   string
	secure   bool

	ensureMu sync.Mutex
	ensured  bool
}

// NewClient creates a client for endpoint and bucket. No request is made
// until the first upload.
func NewClient(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("minio: bucket is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}
	return &Client{client: client, buckets: client, endpoint: endpoint, bucket: bucket, secure: useSSL}, nil
}

// Bucket returns the target bucket name.
func (c *Client) Bucket() string { return c.bucket }

// ObjectURL returns the URL an uploaded key is served from.
func (c *Client) ObjectURL(key string) string {
	scheme := "http"
	if c.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.endpoint, c.bucket, key)
}

// EnsureBucket creates the bucket if it doesn't exist. Success is
// remembered; a failed check is retried on the next call.
func (c *Client) EnsureBucket(ctx context.Context) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensured {
		return nil
	}
	if err := c.ensureBucket(ctx); err != nil {
		return err
	}
	c.ensured = true
	return nil
}

// bucketAPI is the part of the MinIO client EnsureBucket needs.
type bucketAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

func (c *Client) ensureBucket(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "minio_ensure_bucket")
	defer span.End()
	span.SetAttributes(attribute.String("minio.bucket", c.bucket))

	exists, err := c.buckets.BucketExists(ctx, c.bucket)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("minio: check bucket: %w", err)
	}
	if !exists {
		if err := c.buckets.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			span.RecordError(err)
			return fmt.Errorf("minio: create bucket: %w", err)
		}
	}
	return nil
}

// Upload stores data under key and returns its object URL.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "minio_upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("minio.bucket", c.bucket),
		attribute.String("minio.key", key),
		attribute.Int("minio.size", len(data)),
	)

	if err := c.EnsureBucket(ctx); err != nil {
		return "", err
	}
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("minio: upload %s: %w", key, err)
	}
	return c.ObjectURL(key), nil
}
