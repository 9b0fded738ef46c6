package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig carries the connection settings for an object-store backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Minio is a Store backed by a MinIO/S3 bucket. It exists for deployments
// where the service runs on more than one node or where local disk is not
// writable; the disk store remains the default.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the object store and verifies the bucket exists.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("store: minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	// Sanity check: bucket must exist.
	exists, err := client.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("store: minio bucket does not exist: %s", cfg.Bucket)
	}

	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

func (m *Minio) Put(ctx context.Context, prefix, contentType string, r io.Reader) (string, error) {
	handle := newHandle(prefix)
	_, err := m.client.PutObject(ctx, m.bucket, handle, r, -1,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("store: putting %s: %w", handle, err)
	}
	return handle, nil
}

func (m *Minio) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", handle, err)
	}
	// Force an early error for a missing object.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("store: opening %s: %w", handle, err)
	}
	return obj, nil
}

func (m *Minio) Remove(ctx context.Context, handle string) {
	err := m.client.RemoveObject(ctx, m.bucket, handle, minio.RemoveObjectOptions{})
	if err != nil {
		log.Printf("service=store msg=%q handle=%s err=%v", "delete_failed", handle, err)
	}
}

func (m *Minio) RemoveAfter(handle string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		m.Remove(context.Background(), handle)
	})
}

func (m *Minio) Sweep(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			log.Printf("service=store msg=%q err=%v", "sweep_list_failed", obj.Err)
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		m.Remove(ctx, obj.Key)
		removed++
	}
	return removed
}

// normaliseEndpoint accepts either "minio:9000" or "http(s)://minio:9000".
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("store: empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("store: invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("store: endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}
