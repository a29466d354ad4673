package photos

import (
	"context"

	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/pg"
	"github.com/picvault/picvault/svc/tenant"
)

// Repository persists photo rows. Same scoping model as albums: the
// tenant is stamped at insert, reads and deletes run unfiltered.
type Repository struct {
	tenant.Scoped
	db pg.Querier
}

func NewRepository(db pg.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Photo) error {
	tenantID, err := r.TenantID(ctx)
	if err != nil {
		return err
	}
	p.TenantID = tenantID

	const q = `
		INSERT INTO photos (id, tenant_id, album_id, filename, content_type, size_bytes, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	return r.db.QueryRow(ctx, q,
		p.ID, p.TenantID, p.AlbumID, p.Filename, p.ContentType, p.SizeBytes, p.StorageKey).
		Scan(&p.CreatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Photo, error) {
	const q = `
		SELECT id, tenant_id, album_id, filename, content_type, size_bytes, storage_key, created_at
		FROM photos WHERE id = $1`

	var p Photo
	err := r.db.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.TenantID, &p.AlbumID, &p.Filename, &p.ContentType, &p.SizeBytes, &p.StorageKey, &p.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]Photo, error) {
	const q = `
		SELECT id, tenant_id, album_id, filename, content_type, size_bytes, storage_key, created_at
		FROM photos WHERE album_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := []Photo{}
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.TenantID, &p.AlbumID, &p.Filename, &p.ContentType, &p.SizeBytes, &p.StorageKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPhotoNotFound
	}
	return nil
}
