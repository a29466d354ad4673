package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/reqctx"
)

// Scoped gives tenant-scoped repositories a uniform way to obtain the
// acting tenant ID. Embed it by composition:
//
//	type albumRepository struct {
//		tenant.Scoped
//		db pg.Querier
//	}
//
// Only inserts need it: database-side policies scope reads, updates and
// deletes automatically, but they cannot invent the tenant ID for a
// brand-new row.
type Scoped struct{}

// TenantID returns the tenant ID from the active request context.
// Returns ErrTenantRequired when the request resolved no tenant, which is
// a client error, not a server fault. Panics when no request context was established
// at all: that means the dispatch scaffolding is broken.
func (Scoped) TenantID(ctx context.Context) (uuid.UUID, error) {
	rc := reqctx.MustFromContext(ctx)
	id, ok := rc.TenantID()
	if !ok {
		return uuid.Nil, ErrTenantRequired
	}
	return id, nil
}

// HasTenant reports whether a tenant is present in context. For the rare
// call sites that legitimately operate without one; tolerates a missing
// request context.
func (Scoped) HasTenant(ctx context.Context) bool {
	_, ok := reqctx.TenantIDFromContext(ctx)
	return ok
}
