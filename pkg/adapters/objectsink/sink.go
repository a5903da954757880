// Package objectsink stores exported images in an S3-compatible bucket.
package objectsink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/user/framegrab/pkg/ports"
)

// Config describes the bucket images are uploaded to.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
}

// ObjectPutter is the part of the minio client the sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts miniogo.RemoveObjectOptions) error
}

// Sink uploads images with a single PutObject each; S3 never exposes a
// partially written object.
type Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

// New connects to the object store described by cfg.
func New(cfg Config) (*Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectsink: bucket is required")
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates a sink over an existing client.
func NewWithClient(client ObjectPutter, bucket, prefix string) *Sink {
	return &Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Put uploads data as prefix/name.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

// Remove deletes prefix/name. S3 reports success for a missing key.
func (s *Sink) Remove(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(name), miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Location returns the s3 URL of name.
func (s *Sink) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func (s *Sink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".ppm":
		return "image/x-portable-pixmap"
	default:
		return "application/octet-stream"
	}
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
