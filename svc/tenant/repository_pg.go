package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/pg"
)

// Compile-time interface checks.
var (
	_ TenantRepository     = (*PGTenantRepository)(nil)
	_ UserRepository       = (*PGUserRepository)(nil)
	_ MembershipRepository = (*PGMembershipRepository)(nil)
)

// PGTenantRepository persists tenants in PostgreSQL. The tenants table is
// outside row-security protection, so these queries work before a tenant
// is resolved.
type PGTenantRepository struct {
	db pg.Querier
}

func NewPGTenantRepository(db pg.Querier) *PGTenantRepository {
	return &PGTenantRepository{db: db}
}

func (r *PGTenantRepository) Create(ctx context.Context, t *Tenant) error {
	const q = `
		INSERT INTO tenants (id, name, slug, external_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, q, t.ID, t.Name, t.Slug, t.ExternalRef).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *PGTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	const q = `
		SELECT id, name, slug, external_ref, created_at, updated_at
		FROM tenants WHERE id = $1`

	var t Tenant
	err := r.db.QueryRow(ctx, q, id).
		Scan(&t.ID, &t.Name, &t.Slug, &t.ExternalRef, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGTenantRepository) GetByExternalRef(ctx context.Context, ref string) (*Tenant, error) {
	const q = `
		SELECT id, name, slug, external_ref, created_at, updated_at
		FROM tenants WHERE external_ref = $1`

	var t Tenant
	err := r.db.QueryRow(ctx, q, ref).
		Scan(&t.ID, &t.Name, &t.Slug, &t.ExternalRef, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGTenantRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Tenant, error) {
	const q = `
		SELECT t.id, t.name, t.slug, t.external_ref, t.created_at, t.updated_at
		FROM tenants t
		JOIN user_tenants ut ON ut.tenant_id = t.id
		WHERE ut.user_id = $1
		ORDER BY ut.created_at`

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []Tenant{}
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.ExternalRef, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Delete removes a tenant; foreign keys cascade to owned resources. Admin
// surface only, never reachable from the tenant-scoped request path.
func (r *PGTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// PGUserRepository persists users in PostgreSQL.
type PGUserRepository struct {
	db pg.Querier
}

func NewPGUserRepository(db pg.Querier) *PGUserRepository {
	return &PGUserRepository{db: db}
}

// UpsertBySubject is keyed on the identity provider's subject so repeated
// logins refresh the email instead of conflicting. The subject conflict is
// absorbed by the upsert, so a duplicate-key error can only mean the email
// is already registered under a different subject.
func (r *PGUserRepository) UpsertBySubject(ctx context.Context, subject, email string) (*User, error) {
	const q = `
		INSERT INTO users (id, email, subject)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject) DO UPDATE
		SET email = EXCLUDED.email, updated_at = now()
		RETURNING id, email, subject, last_tenant_id, created_at, updated_at`

	var u User
	err := r.db.QueryRow(ctx, q, uuid.New(), email, subject).
		Scan(&u.ID, &u.Email, &u.Subject, &u.LastTenantID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const q = `
		SELECT id, email, subject, last_tenant_id, created_at, updated_at
		FROM users WHERE id = $1`

	var u User
	err := r.db.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Email, &u.Subject, &u.LastTenantID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) SetLastTenant(ctx context.Context, userID, tenantID uuid.UUID) error {
	const q = `UPDATE users SET last_tenant_id = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, userID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PGMembershipRepository persists memberships in PostgreSQL. The
// user_tenants table carries the dual policy: a row is visible when the
// session's user matches its user column or the session's tenant matches
// its tenant column, which is what lets "list my tenants" work before a
// tenant is selected.
type PGMembershipRepository struct {
	db pg.Querier
}

func NewPGMembershipRepository(db pg.Querier) *PGMembershipRepository {
	return &PGMembershipRepository{db: db}
}

func (r *PGMembershipRepository) List(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	const q = `
		SELECT user_id, tenant_id, created_at
		FROM user_tenants WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.UserID, &m.TenantID, &m.CreatedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *PGMembershipRepository) Exists(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM user_tenants WHERE user_id = $1 AND tenant_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, q, userID, tenantID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGMembershipRepository) Create(ctx context.Context, userID, tenantID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_tenants (user_id, tenant_id) VALUES ($1, $2)`, userID, tenantID)
	return err
}

func (r *PGMembershipRepository) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM user_tenants WHERE user_id = $1 AND tenant_id = $2`, userID, tenantID)
	return err
}
