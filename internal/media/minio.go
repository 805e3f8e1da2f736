package media

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// MinIOProvider stores images in an S3-compatible bucket. The object key is
// the deletion handle.
type MinIOProvider struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewMinIOProvider connects to the configured endpoint.
func NewMinIOProvider(cfg config.MediaConfig, logger *zap.Logger) (*MinIOProvider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &MinIOProvider{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		logger:        logger,
	}, nil
}

// EnsureBucket creates the bucket when missing.
func (p *MinIOProvider) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", p.bucket, err)
	}
	return nil
}

// Upload stores the image and returns its public URL and deletion handle.
func (p *MinIOProvider) Upload(ctx context.Context, upload Upload) (domain.Image, error) {
	contentType := DetectContentType(upload.Name, upload.ContentType)
	if !IsImage(contentType) {
		return domain.Image{}, ErrUnsupportedType
	}

	key := ObjectKey(upload.Folder, upload.Name)
	_, err := p.client.PutObject(ctx, p.bucket, key, upload.Body, upload.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		p.logger.Error("media upload failed", zap.String("object", key), zap.Error(err))
		return domain.Image{}, err
	}
	p.logger.Info("media uploaded", zap.String("object", key), zap.Int64("size", upload.Size))

	return domain.Image{URL: PublicURL(p.publicBaseURL, p.bucket, key), Handle: key}, nil
}

// Delete removes the object behind handle.
func (p *MinIOProvider) Delete(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if err := p.client.RemoveObject(ctx, p.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return err
	}
	p.logger.Info("media deleted", zap.String("object", handle))
	return nil
}

// Ping checks that the bucket is reachable.
func (p *MinIOProvider) Ping(ctx context.Context) error {
	_, err := p.client.BucketExists(ctx, p.bucket)
	return err
}

// ObjectKey builds a collision-free key under folder, keeping the original extension.
func ObjectKey(folder, name string) string {
	ext := strings.ToLower(filepath.Ext(path.Base(name)))
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "uploads"
	}
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)
}

// PublicURL is the address clients use to fetch an object.
func PublicURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, key)
}
