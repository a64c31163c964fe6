package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectSource keeps archives in an S3-compatible bucket and downloads them
// into the local upload directory for extraction.
type ObjectSource struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewObjectSource(cfg S3Config) (*ObjectSource, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &ObjectSource{client: client, bucketName: bucket, region: region}, nil
}

func (s *ObjectSource) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put uploads the local archive at localPath under key.
func (s *ObjectSource) Put(ctx context.Context, key, localPath string) error {
	key = normalizeKey(key)
	if key == "" {
		return fmt.Errorf("archive key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	return err
}

// Fetch downloads key into dir under a fresh unique name and returns the
// local path. The name keeps the key's extension so DestDir stays distinct.
func (s *ObjectSource) Fetch(ctx context.Context, key, dir string) (string, error) {
	key = normalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("archive key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer obj.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	local := filepath.Join(dir, LocalName(path.Base(key)))
	out, err := os.Create(local)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, obj); err != nil {
		out.Close()
		os.Remove(local)
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return "", fmt.Errorf("archive %q not found: %w", key, os.ErrNotExist)
		}
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return local, nil
}

// LocalName derives a unique local file name for an uploaded archive:
// "code_zip-<uuid><ext>".
func LocalName(original string) string {
	ext := filepath.Ext(original)
	if ext == "" {
		ext = ".zip"
	}
	return "code_zip-" + uuid.NewString() + ext
}

func normalizeKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}
