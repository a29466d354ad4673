package photos

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Photo is a picture inside an album. The database row scopes access;
// StorageKey locates the blob and carries the owning tenant as its first
// path segment for auditability.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	AlbumID     uuid.UUID `json:"album_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"-"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrPhotoNotFound = errors.New("photos: photo not found")
	ErrFileRequired  = errors.New("photos: file is required")
)
