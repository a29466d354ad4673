package tenant

import (
	"context"
	"net/http"

	"github.com/picvault/picvault/pkg/reqctx"
	"github.com/picvault/picvault/pkg/session"
)

// SessionProvider yields the request's session, creating one if needed.
// Satisfied by *session.Manager.
type SessionProvider interface {
	SessionSaver
	Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.Session, error)
}

// Middleware establishes the request context cell, exactly once per
// inbound request and before any handler runs, and executes tenant
// resolution into it. Must be mounted ahead of every route that touches
// tenant-scoped data; the connection-level enforcement bridge reads the
// cell this middleware creates.
func Middleware(svc *Service, sessions SessionProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := reqctx.New()
			ctx := reqctx.With(r.Context(), rc)

			sess, err := sessions.Ensure(ctx, w, r)
			if err != nil {
				// No session means no stored selection and no user; the
				// request still gets a (tenant-less) context so downstream
				// enforcement can deny data access cleanly.
				sess = &session.Session{}
			}

			svc.Resolve(ctx, r, sess)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
