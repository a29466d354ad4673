package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated customer/organization. Tenant rows live
// outside row-security protection: reading the tenant registry must be
// possible before a tenant is selected.
type Tenant struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	ExternalRef *string   `json:"external_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is a principal authenticated by the external identity provider,
// keyed by the provider's subject identifier. LastTenantID is a hint for
// auto-selection, not an authorization grant.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Subject      string     `json:"subject"`
	LastTenantID *uuid.UUID `json:"last_tenant_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Membership states that a user may access a tenant. The presence of a
// membership row is the sole authority for that question; nothing else in
// the system grants access.
type Membership struct {
	UserID    uuid.UUID `json:"user_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TenantRepository persists tenants.
type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetByExternalRef(ctx context.Context, ref string) (*Tenant, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepository persists users.
type UserRepository interface {
	// UpsertBySubject creates or refreshes the user identified by the
	// identity provider's subject. Called on every authentication callback.
	UpsertBySubject(ctx context.Context, subject, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	SetLastTenant(ctx context.Context, userID, tenantID uuid.UUID) error
}

// MembershipRepository persists user-tenant memberships.
type MembershipRepository interface {
	List(ctx context.Context, userID uuid.UUID) ([]Membership, error)
	Exists(ctx context.Context, userID, tenantID uuid.UUID) (bool, error)
	Create(ctx context.Context, userID, tenantID uuid.UUID) error
	Delete(ctx context.Context, userID, tenantID uuid.UUID) error
}
