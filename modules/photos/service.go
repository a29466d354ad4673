package photos

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/picvault/picvault/svc/tenant"
)

// BlobStore is the object-storage surface the service needs. Satisfied by
// *storage.S3Store.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Service coordinates the photo row and its blob. The row is the access
// authority, so it is written last on upload and removed first on delete:
// a failure in between leaves an orphaned blob, never a row pointing at
// nothing a policy would protect.
type Service struct {
	tenant.Scoped
	repo   *Repository
	blobs  BlobStore
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(repo *Repository, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		blobs:  blobs,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores the file's blob and inserts the photo row.
func (s *Service) Upload(ctx context.Context, albumID uuid.UUID, fh *multipart.FileHeader) (*Photo, error) {
	if fh == nil {
		return nil, ErrFileRequired
	}

	tenantID, err := s.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	photo := &Photo{
		ID:          uuid.New(),
		AlbumID:     albumID,
		Filename:    sanitizeFilename(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
		SizeBytes:   fh.Size,
	}
	photo.StorageKey = fmt.Sprintf("tenants/%s/albums/%s/%s%s",
		tenantID, albumID, photo.ID, strings.ToLower(filepath.Ext(photo.Filename)))

	if err := s.blobs.Put(ctx, photo.StorageKey, src, photo.ContentType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	if err := s.repo.Create(ctx, photo); err != nil {
		if delErr := s.blobs.Delete(ctx, photo.StorageKey); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned blob after failed photo insert",
				"error", delErr, "storage_key", photo.StorageKey)
		}
		return nil, err
	}

	photo.URL = s.blobs.URL(photo.StorageKey)
	return photo, nil
}

// ListByAlbum returns an album's photos with their public URLs.
func (s *Service) ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]Photo, error) {
	photos, err := s.repo.ListByAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	for i := range photos {
		photos[i].URL = s.blobs.URL(photos[i].StorageKey)
	}
	return photos, nil
}

// Delete removes the photo row, then its blob. A blob that outlives its
// row is unreachable garbage, logged for cleanup.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	photo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, photo.StorageKey); err != nil {
		s.logger.ErrorContext(ctx, "orphaned blob after photo delete",
			"error", err, "storage_key", photo.StorageKey)
	}
	return nil
}

// sanitizeFilename keeps the base name only and caps its length.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}
