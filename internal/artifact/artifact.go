// Package artifact ships simulation artifacts (exported images, saved
// worlds, movie/animation recordings) off the controller host to S3,
// supplementing spec.md §6's plain local-filesystem targets for
// destinations that name an "s3://bucket/key" URL. Grounded on the
// teacher's pkg/store/content/s3 client construction; the multipart
// upload machinery, cache layer, and buffered-deletion queue that
// package adds for general-purpose file content storage have no
// analogue here (artifacts are written once, never updated or deleted
// by the engine), so only the client-construction and single-object
// PutObject path are carried over — see DESIGN.md.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader ships exported-artifact bytes to S3, falling back to a plain
// local file write when a destination is not an s3:// URL.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config configures the Uploader's S3 client.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// New builds an Uploader from cfg. When cfg.AccessKeyID is empty the
// default AWS credential chain (environment, shared config, instance
// role) is used instead of static credentials.
func New(ctx context.Context, cfg Config) (*Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("artifact: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Destination classifies an export path the engine is about to write
// to: either a local filesystem path or an s3:// object key.
type Destination struct {
	IsS3 bool
	// LocalPath is set when IsS3 is false.
	LocalPath string
	// Key is the S3 object key (without bucket), set when IsS3 is true.
	Key string
}

// ParseDestination inspects path (as passed to export-image or world
// save) and classifies it.
func ParseDestination(path string) Destination {
	const scheme = "s3://"
	if !strings.HasPrefix(path, scheme) {
		return Destination{LocalPath: path}
	}
	rest := strings.TrimPrefix(path, scheme)
	// s3://bucket/key form: the bucket segment is informational only
	// here since Uploader is already bound to one bucket; only the key
	// after the first slash is used.
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[idx+1:]
	}
	return Destination{IsS3: true, Key: rest}
}

// Upload writes data to dest: an S3 PutObject when dest.IsS3, otherwise
// a local file write (creating parent directories as needed).
func (u *Uploader) Upload(ctx context.Context, dest Destination, data []byte) error {
	if !dest.IsS3 {
		if err := os.MkdirAll(filepath.Dir(dest.LocalPath), 0o755); err != nil {
			return fmt.Errorf("artifact: create directory for %s: %w", dest.LocalPath, err)
		}
		return os.WriteFile(dest.LocalPath, data, 0o644)
	}
	if u == nil {
		return fmt.Errorf("artifact: s3 destination %q requested but uploader is not configured", dest.Key)
	}

	key := dest.Key
	if u.prefix != "" {
		key = strings.TrimSuffix(u.prefix, "/") + "/" + key
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("artifact: upload %s/%s: %w", u.bucket, key, err)
	}
	return nil
}
