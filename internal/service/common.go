package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/media"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/worker"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// Listing defaults.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	defaultDeleteTimeout = 10 * time.Second

	complaintImageFolder = "complaints"
	profilePictureFolder = "profile_pictures"
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize applies defaults and bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns the number of pages needed for total rows.
func (p Pagination) TotalPages(total int64) int {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// mapNotFound turns a repository miss into a NotFound domain error.
func mapNotFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

// validateUploads rejects non-image files before anything leaves the process.
func validateUploads(field string, uploads []media.Upload) error {
	for i := range uploads {
		ct, err := media.Sniff(&uploads[i])
		if err != nil {
			return apperrors.NewValidationError("unable to read upload", map[string]any{
				"field": field,
				"file":  uploads[i].Name,
			})
		}
		if !media.IsImage(ct) {
			return apperrors.NewValidationError(media.ErrUnsupportedType.Error(), map[string]any{
				"field": field,
				"file":  uploads[i].Name,
			})
		}
		uploads[i].ContentType = ct
	}
	return nil
}

// mediaCleaner removes hosted images without surfacing failures.
type mediaCleaner struct {
	provider media.Provider
	runner   *worker.BestEffort
	timeout  time.Duration
}

// uploadAll uploads every file in order. When one fails, the files this call
// already uploaded are deleted best-effort and an UpstreamFailure is returned.
func (m mediaCleaner) uploadAll(ctx context.Context, folder string, uploads []media.Upload) ([]domain.Image, error) {
	images := make([]domain.Image, 0, len(uploads))
	for _, upload := range uploads {
		upload.Folder = folder
		img, err := m.provider.Upload(ctx, upload)
		if err != nil {
			m.discard(ctx, images)
			return nil, apperrors.NewUpstreamFailure("image upload failed", err)
		}
		images = append(images, img)
	}
	return images, nil
}

// discard schedules a best-effort delete of every image.
func (m mediaCleaner) discard(ctx context.Context, images []domain.Image) {
	for _, img := range images {
		m.deleteHandle(ctx, img.Handle)
	}
}

// deleteAll schedules a best-effort delete of every handle.
func (m mediaCleaner) deleteAll(ctx context.Context, handles []string) {
	for _, handle := range handles {
		m.deleteHandle(ctx, handle)
	}
}

func (m mediaCleaner) deleteHandle(ctx context.Context, handle string) {
	if handle == "" {
		return
	}
	m.runner.Go(ctx, "media.delete", m.timeout, func(ctx context.Context) error {
		return m.provider.Delete(ctx, handle)
	}, zap.String("handle", handle))
}
