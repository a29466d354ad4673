package albums

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Album is a tenant-owned photo collection. TenantID is set once at
// insert; row-security policies keep every later read and write inside
// the owning tenant without explicit filters.
type Album struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrAlbumNotFound = errors.New("albums: album not found")
	ErrTitleRequired = errors.New("albums: title is required")
)
