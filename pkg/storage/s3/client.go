package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/snapmarket/snapmarket-backend/pkg/config"
	"github.com/snapmarket/snapmarket-backend/pkg/enums"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

const (
	statusTagKey = "Status"
	pingTimeout  = 5 * time.Second
)

// Client wraps the S3 SDK for the asset bucket: presigned transfers, status
// tagging, and deletion. All objects live in a single configured bucket.
type Client struct {
	api     *awss3.Client
	presign *awss3.PresignClient
	bucket  string
}

// ObjectStore is the surface services and cron jobs consume.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, maxBytes int64, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
	SetStatusTag(ctx context.Context, key string, status enums.AssetStatus) error
	Delete(ctx context.Context, key string) error
}

// NewClient builds the S3 client from configuration and verifies bucket access.
func NewClient(ctx context.Context, cfg config.S3Config, logg *logger.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("s3 region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	client := &Client{
		api:     api,
		presign: awss3.NewPresignClient(api),
		bucket:  cfg.Bucket,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("s3 health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "s3 client initialized")
	}
	return client, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	return err
}

// PresignPut returns a presigned upload URL. The object is tagged unselected
// at write time so the retention sweep can find it without a status lookup.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, maxBytes int64, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}

	input := &awss3.PutObjectInput{
		Bucket:  aws.String(c.bucket),
		Key:     aws.String(key),
		Tagging: aws.String(statusTagKey + "=" + enums.AssetStatusUnselected.String()),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if maxBytes > 0 {
		input.ContentLength = aws.Int64(maxBytes)
	}

	req, err := c.presign.PresignPutObject(ctx, input, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presigning put for %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignGet returns a presigned download URL. When filename is set the
// response forces an attachment download under that name.
func (c *Client) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}

	input := &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if filename != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", filename)
		input.ResponseContentDisposition = aws.String(disposition)
	}

	req, err := c.presign.PresignGetObject(ctx, input, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presigning get for %s: %w", key, err)
	}
	return req.URL, nil
}

// SetStatusTag replaces the object's tag set with the given status.
func (c *Client) SetStatusTag(ctx context.Context, key string, status enums.AssetStatus) error {
	if key == "" {
		return errors.New("object key is required")
	}
	if !status.IsValid() {
		return fmt.Errorf("invalid asset status %q", status)
	}

	_, err := c.api.PutObjectTagging(ctx, &awss3.PutObjectTaggingInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Tagging: &s3types.Tagging{
			TagSet: []s3types.Tag{{
				Key:   aws.String(statusTagKey),
				Value: aws.String(status.String()),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("tagging %s: %w", key, err)
	}
	return nil
}

// Delete removes the object. Deleting a missing key is not an error so the
// retention sweep stays idempotent across reruns.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("object key is required")
	}

	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil
		}
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds the canonical storage key for an entry's binary.
func ObjectKey(requestID, sellerID, assetID string) string {
	return strings.Join([]string{"entries", requestID, sellerID, assetID}, "/")
}

// ThumbnailKey derives the thumbnail key from a file key.
func ThumbnailKey(fileKey string) string {
	return fileKey + "_thumbnail"
}

// FilenameFromKey extracts a user-facing filename from an object key.
func FilenameFromKey(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx < 0 || idx == len(key)-1 {
		return key
	}
	name := key[idx+1:]
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
