package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker"

	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/storage"
)

const pingTimeout = 5 * time.Second

type objectAPI interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

type uploaderAPI interface {
	Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Client is the S3-compatible ObjectStore. Writes go through a circuit breaker.
type Client struct {
	api      objectAPI
	uploader uploaderAPI
	bucket   string
	breaker  *gobreaker.CircuitBreaker
	logg     *logger.Logger
}

// New builds a client from static or ambient AWS credentials. Endpoint overrides target MinIO/R2.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	uploader := manager.NewUploader(api, func(u *manager.Uploader) {
		if cfg.PartSizeMB > 0 {
			u.PartSize = cfg.PartSizeMB * 1024 * 1024
		}
	})

	client := newClient(api, uploader, cfg, logg)
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.Bucket), "s3 object store initialized")
	}
	return client, nil
}

func newClient(api objectAPI, uploader uploaderAPI, cfg config.StorageConfig, logg *logger.Logger) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c := &Client{
		api:      api,
		uploader: uploader,
		bucket:   cfg.Bucket,
		logg:     logg,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "s3:" + cfg.Bucket,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if c.logg == nil {
				return
			}
			ctx := c.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			c.logg.Warn(ctx, "object store circuit breaker changed state")
		},
	})
	return c
}

// Put streams localPath to key and always removes localPath afterwards.
func (c *Client) Put(ctx context.Context, localPath, key, contentType string) (err error) {
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "path", localPath), "failed to remove local upload file")
		}
	}()

	if key == "" {
		return errors.New("object key is required")
	}
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return c.uploader.Upload(ctx, &awss3.PutObjectInput{
			Bucket:       aws.String(c.bucket),
			Key:          aws.String(key),
			Body:         file,
			ContentType:  aws.String(contentType),
			CacheControl: aws.String(storage.ImmutableCacheControl),
		})
	})
	if err != nil {
		return c.mapWriteErr(key, err)
	}
	return nil
}

// Get opens the object for streaming. The caller closes Body.
func (c *Client) Get(ctx context.Context, key string) (*storage.Object, error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return &storage.Object{
		Body:        out.Body,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        aws.ToString(out.ETag),
	}, nil
}

// Delete removes key. Deleting a missing key succeeds.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("object key is required")
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
	})
	if err != nil {
		return c.mapWriteErr(key, err)
	}
	return nil
}

// Ping checks the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("s3 head bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) mapWriteErr(key string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("s3 write %s: %w", key, storage.ErrUnavailable)
	}
	return fmt.Errorf("s3 write %s: %w", key, err)
}

var _ storage.ObjectStore = (*Client)(nil)
