package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultURLExpiry is how long a presigned artifact URL stays valid.
const DefaultURLExpiry = 24 * time.Hour

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL, when set, serves objects as <PublicURL>/<bucket>/<key>
	// instead of presigned URLs.
	PublicURL string
	URLExpiry time.Duration
}

// Store implements reports.ArtifactStore plus the analysis reader and
// resolver ports on one bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	publicURL  string
	expiry     time.Duration
}

// New buat koneksi MinIO
func New(ctx context.Context, opt Options) (*Store, error) {
	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
		Region: opt.Region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, opt.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opt.Bucket, minio.MakeBucketOptions{Region: opt.Region}); err != nil {
			return nil, err
		}
	}

	expiry := opt.URLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &Store{client: cli, bucketName: opt.Bucket, publicURL: opt.PublicURL, expiry: expiry}, nil
}

// Put upload stream ke bucket. size -1 kalau tidak diketahui.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, mediaType string) error {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, body, size, minio.PutObjectOptions{
		ContentType: mediaType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// URL publik (jika bucket public), kalau private generate presigned URL
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return publicObjectURL(s.publicURL, s.bucketName, key)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Open streams an object. The object is stat'ed first so a missing key
// fails here rather than on the first Read.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}
	return obj, nil
}

// Remove dipakai untuk cleanup kalau insert record gagal
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func publicObjectURL(base, bucket, key string) (string, error) {
	u, err := url.JoinPath(base, bucket, key)
	if err != nil {
		return "", fmt.Errorf("public url for %s: %w", key, err)
	}
	return u, nil
}
