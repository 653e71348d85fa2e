// Package objectstore uploads exported validation reports to S3-compatible
// storage through MinIO.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes the bucket reports are written to
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// Prefix is prepended to every object name
	Prefix string
}

// Validate checks the settings
func (c Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("objectstore endpoint is required"))
	}
	if c.Bucket == "" {
		errs = append(errs, errors.New("objectstore bucket is required"))
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		errs = append(errs, errors.New("objectstore access key and secret key must be set together"))
	}
	return errors.Join(errs...)
}

// bucketClient is the part of *minio.Client the uploader uses
type bucketClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Uploader writes reports into one bucket
type Uploader struct {
	client bucketClient
	cfg    Config
}

// NewMinIOClient creates a client for cfg
func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// New returns an uploader backed by a MinIO client
func New(cfg Config) (*Uploader, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Uploader{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket when it does not exist
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket %s exists: %w", u.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{Region: u.cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", u.cfg.Bucket, err)
	}
	return nil
}

// ObjectName returns the key a report file is stored under:
// <prefix>/<yyyy>/<mm>/<dd>/<run id>/<name>
func (u *Uploader) ObjectName(runID, name string, at time.Time) string {
	at = at.UTC()
	return path.Join(u.cfg.Prefix, at.Format("2006"), at.Format("01"), at.Format("02"), runID, path.Base(name))
}

// Upload stores data under object and returns the object's location
func (u *Uploader) Upload(ctx context.Context, object string, data []byte, contentType string) (string, error) {
	if err := u.EnsureBucket(ctx); err != nil {
		return "", err
	}

	_, err := u.client.PutObject(ctx, u.cfg.Bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return fmt.Sprintf("s3://%s/%s", u.cfg.Bucket, object), nil
}

// ContentType returns the MIME type for a report file name
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".json", ".jsonl":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
