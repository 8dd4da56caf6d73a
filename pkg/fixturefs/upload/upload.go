// Package upload publishes a finished fixture file to MinIO or any other
// S3-compatible object store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/fixturefs/pkg/fixturefs/logging"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/output"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var logger = logging.Get("upload")

// ErrNotConfigured is returned when required connection settings are missing.
var ErrNotConfigured = errors.New("upload not configured")

// Config holds object store connection settings.
type Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`

	// Object is the key to upload to. Empty uses the file's base name.
	Object string `mapstructure:"object" yaml:"object"`

	UseSSL bool `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Validate checks that every required setting is present.
func (c Config) Validate() error {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if c.AccessKey == "" {
		missing = append(missing, "access_key")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// ObjectKey returns the key a file at path is stored under.
func (c Config) ObjectKey(path string) string {
	if c.Object != "" {
		return c.Object
	}
	return filepath.Base(path)
}

// Result describes a completed upload.
type Result struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// URL renders the object location as an s3:// URL.
func (r Result) URL() string {
	return fmt.Sprintf("s3://%s/%s", r.Bucket, r.Key)
}

// Client uploads files to one bucket.
type Client struct {
	client *minio.Client
	cfg    Config
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		logger.Info("creating bucket", "bucket", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Client{client: client, cfg: cfg}, nil
}

// Upload stores the file at path and returns where it went.
func (c *Client) Upload(ctx context.Context, path string) (Result, error) {
	key := c.cfg.ObjectKey(path)
	info, err := c.client.FPutObject(ctx, c.cfg.Bucket, key, path, minio.PutObjectOptions{
		ContentType: ContentType(path),
	})
	if err != nil {
		return Result{}, fmt.Errorf("uploading %s: %w", path, err)
	}

	res := Result{Bucket: info.Bucket, Key: info.Key, Size: info.Size, ETag: info.ETag}
	logger.Info("fixture uploaded", "url", res.URL(), "bytes", res.Size)
	return res, nil
}

// ContentType picks the MIME type for a fixture file from its suffix.
func ContentType(path string) string {
	switch output.CodecForPath(path) {
	case output.CodecGzip:
		return "application/gzip"
	case output.CodecZstd:
		return "application/zstd"
	case output.CodecXZ:
		return "application/x-xz"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/x-ndjson"
	}
}
