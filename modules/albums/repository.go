package albums

import (
	"context"

	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/pg"
	"github.com/picvault/picvault/svc/tenant"
)

// Repository persists albums. Only Create mentions the tenant: the row
// needs its owner stamped at insert, everything else is scoped by the
// database's policies through the primed connection.
type Repository struct {
	tenant.Scoped
	db pg.Querier
}

func NewRepository(db pg.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, a *Album) error {
	tenantID, err := r.TenantID(ctx)
	if err != nil {
		return err
	}
	a.TenantID = tenantID

	const q = `
		INSERT INTO albums (id, tenant_id, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, q, a.ID, a.TenantID, a.Title, a.Description).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Album, error) {
	const q = `
		SELECT id, tenant_id, title, description, created_at, updated_at
		FROM albums WHERE id = $1`

	var a Album
	err := r.db.QueryRow(ctx, q, id).
		Scan(&a.ID, &a.TenantID, &a.Title, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrAlbumNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) List(ctx context.Context) ([]Album, error) {
	const q = `
		SELECT id, tenant_id, title, description, created_at, updated_at
		FROM albums ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := []Album{}
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Title, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (r *Repository) Update(ctx context.Context, a *Album) error {
	const q = `
		UPDATE albums SET title = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, a.ID, a.Title, a.Description).Scan(&a.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return ErrAlbumNotFound
		}
		return err
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlbumNotFound
	}
	return nil
}
