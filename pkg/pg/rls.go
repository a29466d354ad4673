package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picvault/picvault/pkg/reqctx"
)

// Session variable names read by the database's row-security policies.
const (
	TenantVar = "app.current_tenant_id"
	UserVar   = "app.current_user_id"
)

const primeQuery = "SELECT set_config($1, $2, false), set_config($3, $4, false)"

// Option adjusts the pool configuration before the pool is created.
type Option func(*pgxpool.Config)

// WithTenantEnforcement installs the connection-level enforcement bridge:
// every connection checkout primes the connection's session state with the
// identity of the current request before any query runs on it.
func WithTenantEnforcement() Option {
	return func(cfg *pgxpool.Config) {
		cfg.BeforeAcquire = primeSessionIdentity
	}
}

// primeSessionIdentity runs on every checkout. Pooled connections are reused
// across requests, so prior session variables are overwritten unconditionally;
// a freshly-acquired connection must never carry its previous borrower's
// identity. Returning false discards the connection instead of handing out
// one whose scoping state is unknown.
func primeSessionIdentity(ctx context.Context, conn *pgx.Conn) bool {
	tenantID, userID := SessionIdentity(ctx)
	if _, err := conn.Exec(ctx, primeQuery, TenantVar, tenantID, UserVar, userID); err != nil {
		return false
	}
	return true
}

// SessionIdentity reads the request context best-effort and returns the
// values destined for the session variables. Absent identity becomes the
// empty string rather than NULL: the policies compare the variable against
// row columns, and an empty string matches no UUID, so a request with no
// resolved tenant sees no tenant-scoped rows at all. Startup scripts and
// migrations run without a request context and land in the same
// see-nothing state instead of failing.
func SessionIdentity(ctx context.Context) (tenantID, userID string) {
	rc, ok := reqctx.FromContext(ctx)
	if !ok {
		return "", ""
	}
	if id, ok := rc.TenantID(); ok {
		tenantID = id.String()
	}
	if id, ok := rc.UserID(); ok {
		userID = id.String()
	}
	return tenantID, userID
}
