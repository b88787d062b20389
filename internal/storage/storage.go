// Package storage keeps club logos and federation documents in MinIO.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	MaxLogoSize       = 2 << 20
	DefaultPresignTTL = 15 * time.Minute
	MaxPresignTTL     = 7 * 24 * time.Hour
	minPresignTTL     = time.Minute
	logoCacheControl  = "public, max-age=86400"
	publicReadAction  = "s3:GetObject"
	policyVersion     = "2012-10-17"
)

var (
	ErrInvalidContentType = errors.New("invalid_content_type")
	ErrObjectTooLarge     = errors.New("object_too_large")
	ErrInvalidObjectKey   = errors.New("invalid_object_key")
	ErrInvalidTTL         = errors.New("invalid_presign_ttl")
	ErrStorageUnavailable = errors.New("storage_unavailable")
)

// logoTypes are raster formats only. Scriptable types such as SVG are never
// served from the public bucket.
var logoTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

const sniffLen = 512

// ObjectStore is the part of *minio.Client the service uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// NewClient builds a MinIO client. It does not contact the server.
func NewClient(cfg config.Config) (*minio.Client, error) {
	return minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
		Region: cfg.Storage.Region,
	})
}

type Params struct {
	fx.In

	Store ObjectStore
	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	store ObjectStore
	cfg   config.StorageConfig
	log   *zap.Logger
	clock clock.Clock
}

func New(p Params) *Service {
	return &Service{
		store: p.Store,
		cfg:   p.Cfg.Storage,
		log:   p.Log.Named("storage"),
		clock: p.Clock,
	}
}

// Object describes a stored object.
type Object struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

func publicReadPolicy(bucket string) (string, error) {
	raw, err := json.Marshal(bucketPolicy{
		Version: policyVersion,
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{publicReadAction},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/*"},
		}},
	})
	return string(raw), err
}

// EnsureBuckets creates the logo and document buckets when missing and makes
// the logo bucket publicly readable. Documents stay private.
func (s *Service) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.cfg.LogoBucket, s.cfg.DocumentBucket} {
		exists, err := s.store.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("%w: bucket %s: %v", ErrStorageUnavailable, bucket, err)
		}
		if exists {
			continue
		}
		if err := s.store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("%w: create bucket %s: %v", ErrStorageUnavailable, bucket, err)
		}
		s.log.Info("bucket created", zap.String("bucket", bucket))
	}

	policy, err := publicReadPolicy(s.cfg.LogoBucket)
	if err != nil {
		return err
	}
	if err := s.store.SetBucketPolicy(ctx, s.cfg.LogoBucket, policy); err != nil {
		return fmt.Errorf("%w: bucket policy %s: %v", ErrStorageUnavailable, s.cfg.LogoBucket, err)
	}
	return nil
}

// UploadLogo stores an image under a slug of name and returns its public URL.
// The stored type is detected from the content and must agree with the
// declared one.
func (s *Service) UploadLogo(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*Object, error) {
	declared := mediaType(contentType)
	if _, ok := logoTypes[declared]; !ok {
		return nil, ErrInvalidContentType
	}
	if size <= 0 || size > MaxLogoSize {
		return nil, ErrObjectTooLarge
	}

	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		return nil, ErrInvalidObjectKey
	}

	head := make([]byte, min(size, sniffLen))
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	head = head[:n]
	contentType = mediaType(http.DetectContentType(head))
	ext, ok := logoTypes[contentType]
	if !ok || contentType != declared {
		s.log.Warn("logo content type rejected", zap.String("declared", declared), zap.String("detected", contentType))
		return nil, ErrInvalidContentType
	}
	r = io.MultiReader(bytes.NewReader(head), r)
	key := fmt.Sprintf("%s-%d%s", base, s.clock.Now(ctx).Unix(), ext)

	info, err := s.store.PutObject(ctx, s.cfg.LogoBucket, key, io.LimitReader(r, size), size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: logoCacheControl,
	})
	if err != nil {
		s.log.Error("logo upload failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.log.Info("logo uploaded", zap.String("bucket", s.cfg.LogoBucket), zap.String("key", key), zap.Int64("size", info.Size))
	return &Object{
		Bucket:      s.cfg.LogoBucket,
		Key:         key,
		URL:         s.PublicURL(s.cfg.LogoBucket, key),
		Size:        size,
		ContentType: contentType,
	}, nil
}

func mediaType(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(raw, ";"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw
}

// PresignDocument returns a time-limited GET URL for a private document.
func (s *Service) PresignDocument(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidObjectKey
	}
	if ttl == 0 {
		ttl = DefaultPresignTTL
	}
	if ttl < minPresignTTL || ttl > MaxPresignTTL {
		return "", ErrInvalidTTL
	}

	u, err := s.store.PresignedGetObject(ctx, s.cfg.DocumentBucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return u.String(), nil
}

// PublicURL builds the anonymous URL of an object in a public bucket.
func (s *Service) PublicURL(bucket, key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + s.cfg.Endpoint
	}
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + key
}
