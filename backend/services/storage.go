package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"apollo/backend/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// Storage keeps uploaded media and returns a public URL for it.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

func NewStorage(cfg *config.Config) (Storage, error) {
	if cfg.StorageDriver == "oss" {
		return NewOSSStorage(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey, cfg.OSSBucket, cfg.OSSPrefix)
	}
	return &LocalStorage{Dir: cfg.UploadDir, BaseURL: cfg.PublicUploadURL}, nil
}

// LocalStorage writes under Dir; the router serves Dir at BaseURL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func (s *LocalStorage) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	path := filepath.Join(s.Dir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, filepath.Clean(s.Dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + key, nil
}

type OSSStorage struct {
	Client     *oss.Client
	Bucket     *oss.Bucket
	Endpoint   string
	BucketName string
	Prefix     string
}

func NewOSSStorage(endpoint, accessKey, secretKey, bucket, prefix string) (*OSSStorage, error) {
	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	b, err := client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %q: %w", bucket, err)
	}
	return &OSSStorage{
		Client:     client,
		Bucket:     b,
		Endpoint:   endpoint,
		BucketName: bucket,
		Prefix:     strings.Trim(prefix, "/"),
	}, nil
}

func (s *OSSStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if s.Prefix != "" {
		key = s.Prefix + "/" + key
	}
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if err := s.Bucket.PutObject(key, r, opts...); err != nil {
		return "", fmt.Errorf("oss put %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *OSSStorage) PublicURL(key string) string {
	end := strings.TrimPrefix(strings.TrimPrefix(s.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.BucketName, end, key)
}
