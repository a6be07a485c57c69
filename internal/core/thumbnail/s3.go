package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base for objects, e.g. a CDN.
	// Defaults to <scheme>://<endpoint>/<bucket>.
	PublicURL    string
	CacheSeconds int
}

// S3Backend stores thumbnails in any S3-compatible bucket.
type S3Backend struct {
	cfg    S3Config
	client *minio.Client
}

func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 endpoint and bucket are required", ErrBucketNotInitialized)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = defaultS3PublicURL(cfg)
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &S3Backend{cfg: cfg, client: client}, nil
}

func defaultS3PublicURL(cfg S3Config) string {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) url(p string) string { return b.cfg.PublicURL + "/" + p }

func (b *S3Backend) Stat(ctx context.Context, p string) (string, bool, error) {
	_, err := b.client.StatObject(ctx, b.cfg.Bucket, p, minio.StatObjectOptions{})
	if err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "NoSuchKey", "NotFound":
			return "", false, nil
		}
		return "", false, classifyS3Error(err)
	}
	return b.url(p), true, nil
}

func (b *S3Backend) Put(ctx context.Context, p string, data []byte, contentType string) (string, error) {
	_, err := b.client.PutObject(ctx, b.cfg.Bucket, p, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: CacheControl(b.cfg.CacheSeconds),
	})
	if err != nil {
		return "", classifyS3Error(err)
	}
	return b.url(p), nil
}

func (b *S3Backend) List(ctx context.Context, prefix string, limit int) ([]Object, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []Object
	for obj := range b.client.ListObjects(ctx, b.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, classifyS3Error(obj.Err)
		}
		out = append(out, Object{Path: obj.Key, Size: obj.Size, UpdatedAt: obj.LastModified})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *S3Backend) Delete(ctx context.Context, p string) error {
	if err := b.client.RemoveObject(ctx, b.cfg.Bucket, p, minio.RemoveObjectOptions{}); err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func (b *S3Backend) Check(ctx context.Context) error {
	ok, err := b.client.BucketExists(ctx, b.cfg.Bucket)
	if err != nil {
		return classifyS3Error(err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket %s does not exist", ErrBucketNotInitialized, b.cfg.Bucket)
	}
	return nil
}

func classifyS3Error(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %v", ErrBucketNotInitialized, err)
	}
	return err
}
