package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/jwt"
	"github.com/picvault/picvault/pkg/pg"
	"github.com/picvault/picvault/pkg/reqctx"
	"github.com/picvault/picvault/pkg/session"
	"github.com/picvault/picvault/pkg/slug"
)

// SessionKeyCurrentTenant is the session data key holding the user's
// currently selected tenant.
const SessionKeyCurrentTenant = "current_tenant_id"

// TenantClaim is the bearer-token claim naming the active tenant directly.
const TenantClaim = "tenant_id"

// SessionSaver persists session changes. Satisfied by *session.Manager.
type SessionSaver interface {
	Save(ctx context.Context, sess *session.Session) error
}

// BlobPurger removes every stored object under a key prefix. Satisfied by
// *storage.S3Store.
type BlobPurger interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// Service implements tenant resolution, the switch-tenant protocol,
// membership synchronization and tenant deletion.
type Service struct {
	tenants     TenantRepository
	users       UserRepository
	memberships MembershipRepository
	sessions    SessionSaver
	blobs       BlobPurger
	logger      *slog.Logger
}

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger configures the logger used for degraded-path reporting.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBlobPurger enables blob cleanup when a tenant is deleted.
func WithBlobPurger(p BlobPurger) Option {
	return func(s *Service) { s.blobs = p }
}

// NewService creates a tenant service.
func NewService(tenants TenantRepository, users UserRepository, memberships MembershipRepository, sessions SessionSaver, opts ...Option) *Service {
	s := &Service{
		tenants:     tenants,
		users:       users,
		memberships: memberships,
		sessions:    sessions,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve computes the authoritative tenant for the request and merges the
// outcome into the request context. Priority order, first success wins:
//
//  1. bearer-token claim
//  2. session-stored selection
//  3. auto-provision (authenticated user with zero memberships)
//  4. auto-select (authenticated user with memberships but no selection)
//
// Resolution never fails the request: provisioning errors are logged and
// the request proceeds tenant-less, where connection-level enforcement
// denies data access naturally.
func (s *Service) Resolve(ctx context.Context, r *http.Request, sess *session.Session) {
	rc := reqctx.MustFromContext(ctx)

	if sess.IsAuthenticated() {
		rc.SetUserID(*sess.UserID)
	}

	if id, ok := tenantFromBearerClaim(r); ok {
		rc.SetTenantID(id)
		return
	}

	if id, ok := tenantFromSession(sess); ok {
		rc.SetTenantID(id)
		return
	}

	if !sess.IsAuthenticated() {
		return
	}

	userID := *sess.UserID
	memberships, err := s.memberships.List(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list memberships during resolution", "error", err, "user_id", userID)
		return
	}

	var tenantID uuid.UUID
	if len(memberships) == 0 {
		tenantID, err = s.provision(ctx, userID)
		if err != nil {
			// Best-effort convenience: the rest of the request pipeline
			// stays available, downstream enforcement sees no tenant.
			s.logger.WarnContext(ctx, "tenant auto-provisioning failed", "error", err, "user_id", userID)
			return
		}
	} else {
		tenantID = s.selectTenant(ctx, userID, memberships)
	}

	sess.Set(SessionKeyCurrentTenant, tenantID.String())
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.WarnContext(ctx, "failed to persist tenant selection", "error", err, "user_id", userID)
	}

	rc.SetTenantID(tenantID)
}

// tenantFromBearerClaim decodes the bearer token's payload and looks for
// a direct tenant claim. Decoding only; signature verification is an
// upstream concern.
func tenantFromBearerClaim(r *http.Request) (uuid.UUID, bool) {
	token, ok := jwt.BearerToken(r)
	if !ok {
		return uuid.Nil, false
	}

	var claims map[string]any
	if err := jwt.DecodePayload(token, &claims); err != nil {
		return uuid.Nil, false
	}

	raw, ok := claims[TenantClaim].(string)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func tenantFromSession(sess *session.Session) (uuid.UUID, bool) {
	raw, ok := sess.GetString(SessionKeyCurrentTenant)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// provision creates a personal tenant for a user with no memberships. The
// name comes from the email local-part, the slug gets a timestamp suffix
// for uniqueness. The new tenant becomes the user's last-tenant hint.
func (s *Service) provision(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load user: %w", err)
	}

	local := user.Email
	if at := strings.Index(local, "@"); at > 0 {
		local = local[:at]
	}
	if local == "" {
		local = "workspace"
	}

	t := &Tenant{
		ID:   uuid.New(),
		Name: local,
		Slug: slug.Make(local, slug.WithSuffix(strconv.FormatInt(time.Now().Unix(), 10))),
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		return uuid.Nil, fmt.Errorf("create tenant: %w", err)
	}

	if err := s.memberships.Create(ctx, userID, t.ID); err != nil {
		return uuid.Nil, fmt.Errorf("create membership: %w", err)
	}

	if err := s.users.SetLastTenant(ctx, userID, t.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record last tenant hint", "error", err, "user_id", userID)
	}

	return t.ID, nil
}

// selectTenant picks the most-recently-used tenant when it is still a valid
// membership, else the first membership in enumeration order.
func (s *Service) selectTenant(ctx context.Context, userID uuid.UUID, memberships []Membership) uuid.UUID {
	if user, err := s.users.GetByID(ctx, userID); err == nil && user.LastTenantID != nil {
		for _, m := range memberships {
			if m.TenantID == *user.LastTenantID {
				return m.TenantID
			}
		}
	}
	return memberships[0].TenantID
}

// Switch changes the session's active tenant. The membership row is the
// sole authorization check; success persists the new selection and updates
// the last-tenant hint for future auto-selection.
func (s *Service) Switch(ctx context.Context, sess *session.Session, tenantID uuid.UUID) (uuid.UUID, error) {
	if !sess.IsAuthenticated() {
		return uuid.Nil, ErrAuthRequired
	}
	userID := *sess.UserID

	ok, err := s.memberships.Exists(ctx, userID, tenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return uuid.Nil, ErrAccessDenied
	}

	sess.Set(SessionKeyCurrentTenant, tenantID.String())
	if err := s.sessions.Save(ctx, sess); err != nil {
		return uuid.Nil, fmt.Errorf("persist session: %w", err)
	}

	if err := s.users.SetLastTenant(ctx, userID, tenantID); err != nil {
		s.logger.WarnContext(ctx, "failed to record last tenant hint", "error", err, "user_id", userID)
	}

	if rc, ok := reqctx.FromContext(ctx); ok {
		rc.SetTenantID(tenantID)
	}

	return tenantID, nil
}

// ListForUser returns the tenants the user belongs to.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Tenant, error) {
	return s.tenants.ListForUser(ctx, userID)
}

// Delete removes a tenant and everything it owns: the row cascade covers
// albums, photos and memberships, the blob purge covers stored originals.
// Membership is the authorization check, same as Switch. Blob purging is
// best-effort; an orphaned prefix is unreachable garbage, not a leak.
func (s *Service) Delete(ctx context.Context, sess *session.Session, tenantID uuid.UUID) error {
	if !sess.IsAuthenticated() {
		return ErrAuthRequired
	}
	userID := *sess.UserID

	ok, err := s.memberships.Exists(ctx, userID, tenantID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ErrAccessDenied
	}

	if err := s.tenants.Delete(ctx, tenantID); err != nil {
		return err
	}

	if s.blobs != nil {
		if err := s.blobs.DeletePrefix(ctx, "tenants/"+tenantID.String()); err != nil {
			s.logger.WarnContext(ctx, "failed to purge tenant blobs", "error", err, "tenant_id", tenantID)
		}
	}

	// Drop a selection pointing at the deleted tenant so the next request
	// re-resolves instead of carrying a dangling ID.
	if raw, ok := sess.GetString(SessionKeyCurrentTenant); ok && raw == tenantID.String() {
		sess.Delete(SessionKeyCurrentTenant)
		if err := s.sessions.Save(ctx, sess); err != nil {
			s.logger.WarnContext(ctx, "failed to clear tenant selection", "error", err, "tenant_id", tenantID)
		}
	}

	return nil
}

// SyncMemberships reconciles a user's memberships with the group
// identifiers the identity provider reports. Each external identifier
// resolves to a local tenant, created on first sight. Missing memberships
// are inserted, no-longer-reported ones deleted. Running the sync twice
// with the same input leaves the same rows: duplicate-insert races are
// treated as no-ops.
func (s *Service) SyncMemberships(ctx context.Context, userID uuid.UUID, externalRefs []string) error {
	target := make(map[uuid.UUID]struct{}, len(externalRefs))
	for _, ref := range externalRefs {
		t, err := s.resolveExternalTenant(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve external group %q: %w", ref, err)
		}
		target[t.ID] = struct{}{}
	}

	current, err := s.memberships.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("list memberships: %w", err)
	}

	existing := make(map[uuid.UUID]struct{}, len(current))
	for _, m := range current {
		existing[m.TenantID] = struct{}{}
	}

	for tenantID := range target {
		if _, ok := existing[tenantID]; ok {
			continue
		}
		if err := s.memberships.Create(ctx, userID, tenantID); err != nil {
			// Concurrent logins may insert the same row; not an error.
			if pg.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("create membership: %w", err)
		}
	}

	for _, m := range current {
		if _, ok := target[m.TenantID]; ok {
			continue
		}
		if err := s.memberships.Delete(ctx, userID, m.TenantID); err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
	}

	return nil
}

// resolveExternalTenant maps an identity-provider group reference to a
// local tenant, creating one the first time the reference is seen. A
// duplicate-key error on create means another login won the race, so the
// tenant is re-read instead.
func (s *Service) resolveExternalTenant(ctx context.Context, ref string) (*Tenant, error) {
	t, err := s.tenants.GetByExternalRef(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTenantNotFound) {
		return nil, err
	}

	t = &Tenant{
		ID:          uuid.New(),
		Name:        ref,
		Slug:        slug.Make(ref, slug.WithRandomSuffix(6)),
		ExternalRef: &ref,
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return s.tenants.GetByExternalRef(ctx, ref)
		}
		return nil, err
	}
	return t, nil
}
