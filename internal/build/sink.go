package build

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/natefinch/atomic"

	"github.com/vellum-web/vellum/internal/config"
)

// Sink persists generated artifacts. How artifacts are stored is
// delegated: the builder only produces (name, content) pairs.
type Sink interface {
	Put(ctx context.Context, name string, content []byte) error
}

// DirSink writes artifacts under a root directory. Writes are atomic so
// a crashed build never leaves a half-written page behind.
type DirSink struct {
	root string
}

// NewDirSink creates a directory sink rooted at root.
func NewDirSink(root string) *DirSink {
	return &DirSink{root: root}
}

// Put implements Sink.
func (s *DirSink) Put(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating output directory for %s: %w", name, err)
	}
	if err := atomic.WriteFile(dest, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Root returns the sink's output directory.
func (s *DirSink) Root() string {
	return s.root
}

// S3Sink uploads artifacts to an S3 bucket, for builds that deploy
// directly instead of writing to disk.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink creates a sink over an existing S3 client.
func NewS3Sink(client *s3.Client, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// NewS3SinkFromConfig creates a sink from the project's deploy
// configuration, loading AWS credentials from the default chain.
func NewS3SinkFromConfig(ctx context.Context, cfg config.S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: no bucket configured")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 sink: loading aws config: %w", err)
	}

	return NewS3Sink(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// Put implements Sink.
func (s *S3Sink) Put(ctx context.Context, name string, content []byte) error {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + name),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	return nil
}
