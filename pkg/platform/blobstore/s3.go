// Package blobstore wires the BlobStore capability to S3, the immutable,
// content-addressed store backing capsule bundles and compiled artifacts.
package blobstore

import (
	"context"
	"io"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Connection is a hub which deals with the S3 client used for every blob
// read/write in the control plane.
type Connection struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	client          *s3.Client
	Logger          mlog.Logger
}

// Connect builds the S3 client, optionally pointed at a custom endpoint for
// local/minio-style testing.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to blob store...")

	var optFns []func(*awsconfig.LoadOptions) error

	optFns = append(optFns, awsconfig.WithRegion(c.Region))

	if c.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		c.Logger.Errorf("failed to load aws config: %v", err)
		return err
	}

	c.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}

		o.UsePathStyle = c.UsePathStyle
	})

	c.Logger.Info("connected to blob store")

	return nil
}

// Client returns the underlying *s3.Client, connecting lazily on first use.
func (c *Connection) Client(ctx context.Context) (*s3.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}

// Put uploads key with the given content, used for every blob write: raw
// bundle files, the concatenated-hash manifest, and compiled artifacts.
func (c *Connection) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	client, err := c.Client(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})

	return err
}

// Get downloads key's content, used to read bundle files and compiled
// artifacts back out of the blob store.
func (c *Connection) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}

	return out.Body, nil
}

// Delete removes key, used by the publish SAGA's compensation path once no
// capsule row references the bundle's content hash any longer.
func (c *Connection) Delete(ctx context.Context, key string) error {
	client, err := c.Client(ctx)
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.Bucket),
		Key:    aws.String(key),
	})

	return err
}

// Exists reports whether key is present. Any HeadObject error, not only a
// missing key, is reported as false with a nil error.
func (c *Connection) Exists(ctx context.Context, key string) (bool, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return false, err
	}

	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}

	return true, nil
}
