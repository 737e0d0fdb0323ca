package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/ai-travel-planner/internal/domain/planner"
)

const (
	pdfContentType = "application/pdf"
	expiresMetaKey = "Expires-At"
)

// R2Config describes an S3-compatible bucket.
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

const bucketCheckTimeout = 10 * time.Second

// bucketAPI is the slice of the minio client used to provision the bucket.
type bucketAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// R2Store stores documents in Cloudflare R2 via the S3-compatible API.
// Expiry is recorded as object metadata and enforced on read.
type R2Store struct {
	client  *minio.Client
	buckets bucketAPI
	bucket  string
	logger  *slog.Logger
	now     func() time.Time

	// bucketReady flips once provisioning succeeds; failures are retried on the
	// next Put.
	mu          sync.Mutex
	bucketReady bool
}

// NewR2Store constructs the storage adapter.
func NewR2Store(cfg R2Config, logger *slog.Logger) (*R2Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cfg.Endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       useSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Store{
		client:  client,
		buckets: client,
		bucket:  cfg.Bucket,
		logger:  logger.With("component", "docstore.r2"),
		now:     time.Now,
	}, nil
}

func (s *R2Store) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}

	// A cancelled request must not decide the outcome for the ones behind it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bucketCheckTimeout)
	defer cancel()

	exists, err := s.buckets.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		s.bucketReady = true
		return nil
	}
	err = s.buckets.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		s.logger.Warn("bucket provisioning failed", "bucket", s.bucket, "error", err)
		return err
	}
	s.bucketReady = true
	return nil
}

func (s *R2Store) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	opts := minio.PutObjectOptions{
		ContentType:      pdfContentType,
		DisableMultipart: true,
	}
	if ttl > 0 {
		opts.UserMetadata = map[string]string{expiresMetaKey: s.now().Add(ttl).UTC().Format(time.RFC3339)}
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (s *R2Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, s.notFoundOr(err)
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat document: %w", err)
	}
	if s.expired(info.UserMetadata[expiresMetaKey]) {
		if err := s.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete expired document", "key", key, "error", err)
		}
		return nil, false, nil
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, fmt.Errorf("read document: %w", err)
	}
	return data, true, nil
}

func (s *R2Store) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *R2Store) expired(raw string) bool {
	if raw == "" {
		return false
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return !s.now().Before(at)
}

func (s *R2Store) notFoundOr(err error) error {
	if isNotFound(err) {
		return nil
	}
	return fmt.Errorf("get document: %w", err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

var _ planner.DocumentStore = (*R2Store)(nil)
