package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client is the subset of the MinIO API used by the report archive.
type Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	// RemoveObjects deletes every object received on objectsCh and reports
	// per-object failures on the returned channel.
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
}

// Endpoint strips an optional URL scheme from the configured endpoint. An
// https:// scheme turns TLS on even when use_ssl is false.
func Endpoint(cfg Config) (host string, secure bool) {
	host, secure = cfg.Endpoint, cfg.UseSSL
	switch {
	case strings.HasPrefix(host, "https://"):
		host, secure = strings.TrimPrefix(host, "https://"), true
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	}
	return strings.TrimRight(host, "/"), secure
}

// NewClient creates a MinIO client for the archive. It does not contact the
// server; Archiver.EnsureBucket is the first call that does.
func NewClient(cfg Config) (Client, error) {
	host, secure := Endpoint(cfg)

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport, err := minio.DefaultTransport(secure)
	if err != nil {
		return nil, fmt.Errorf("archive transport: %w", err)
	}
	transport.ResponseHeaderTimeout = timeout
	transport.TLSHandshakeTimeout = timeout

	client, err := minio.New(host, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    secure,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}
	return client, nil
}
