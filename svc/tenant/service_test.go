package tenant_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picvault/picvault/pkg/jwt"
	"github.com/picvault/picvault/pkg/reqctx"
	"github.com/picvault/picvault/pkg/session"
	"github.com/picvault/picvault/svc/tenant"
)

// --- fakes -----------------------------------------------------------------

type fakeTenantRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*tenant.Tenant
	byRef       map[string]*tenant.Tenant
	listForUser []tenant.Tenant
	createErr   error
	deleteErr   error
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{
		byID:  make(map[uuid.UUID]*tenant.Tenant),
		byRef: make(map[string]*tenant.Tenant),
	}
}

func (f *fakeTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.byID[t.ID] = t
	if t.ExternalRef != nil {
		f.byRef[*t.ExternalRef] = t
	}
	return nil
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (f *fakeTenantRepo) GetByExternalRef(ctx context.Context, ref string) (*tenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byRef[ref]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (f *fakeTenantRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]tenant.Tenant, error) {
	return f.listForUser, nil
}

func (f *fakeTenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return tenant.ErrTenantNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeTenantRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*tenant.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*tenant.User)}
}

func (f *fakeUserRepo) add(u *tenant.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeUserRepo) UpsertBySubject(ctx context.Context, subject, email string) (*tenant.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Subject == subject {
			u.Email = email
			return u, nil
		}
	}
	u := &tenant.User{ID: uuid.New(), Email: email, Subject: subject}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*tenant.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, tenant.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) SetLastTenant(ctx context.Context, userID, tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return tenant.ErrUserNotFound
	}
	u.LastTenantID = &tenantID
	return nil
}

type membershipKey struct {
	userID   uuid.UUID
	tenantID uuid.UUID
}

type fakeMembershipRepo struct {
	mu         sync.Mutex
	rows       map[membershipKey]tenant.Membership
	order      []membershipKey
	duplicates int
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{rows: make(map[membershipKey]tenant.Membership)}
}

func (f *fakeMembershipRepo) List(ctx context.Context, userID uuid.UUID) ([]tenant.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tenant.Membership
	for _, k := range f.order {
		if k.userID == userID {
			out = append(out, f.rows[k])
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) Exists(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[membershipKey{userID, tenantID}]
	return ok, nil
}

func (f *fakeMembershipRepo) Create(ctx context.Context, userID, tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := membershipKey{userID, tenantID}
	if _, ok := f.rows[k]; ok {
		f.duplicates++
		return &pgconn.PgError{Code: "23505"}
	}
	f.rows[k] = tenant.Membership{UserID: userID, TenantID: tenantID, CreatedAt: time.Now()}
	f.order = append(f.order, k)
	return nil
}

func (f *fakeMembershipRepo) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := membershipKey{userID, tenantID}
	delete(f.rows, k)
	for i, o := range f.order {
		if o == k {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeMembershipRepo) count(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.rows {
		if k.userID == userID {
			n++
		}
	}
	return n
}

type fakeSessionSaver struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (f *fakeSessionSaver) Save(ctx context.Context, sess *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return f.err
}

// --- helpers ---------------------------------------------------------------

type fixture struct {
	svc         *tenant.Service
	tenants     *fakeTenantRepo
	users       *fakeUserRepo
	memberships *fakeMembershipRepo
	saver       *fakeSessionSaver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tenants:     newFakeTenantRepo(),
		users:       newFakeUserRepo(),
		memberships: newFakeMembershipRepo(),
		saver:       &fakeSessionSaver{},
	}
	f.svc = tenant.NewService(f.tenants, f.users, f.memberships, f.saver)
	return f
}

func authedSession(userID uuid.UUID) *session.Session {
	return session.New("tok", &userID, time.Hour)
}

func requestCtx(t *testing.T) (context.Context, *reqctx.Context) {
	t.Helper()
	rc := reqctx.New()
	return reqctx.With(context.Background(), rc), rc
}

func bearerRequest(t *testing.T, claims map[string]any) *http.Request {
	t.Helper()
	svc, err := jwt.New([]byte("resolution-test-key-0123456789abcd"))
	require.NoError(t, err)
	token, err := svc.Generate(claims)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/albums", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// --- resolution ------------------------------------------------------------

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("bearer claim wins over session selection", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		claimTenant := uuid.New()
		sessionTenant := uuid.New()

		sess := session.New("tok", nil, time.Hour)
		sess.Set(tenant.SessionKeyCurrentTenant, sessionTenant.String())

		r := bearerRequest(t, map[string]any{tenant.TenantClaim: claimTenant.String()})
		f.svc.Resolve(ctx, r, sess)

		got, ok := rc.TenantID()
		require.True(t, ok)
		assert.Equal(t, claimTenant, got)
	})

	t.Run("session selection used without claim", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		sessionTenant := uuid.New()
		sess := session.New("tok", nil, time.Hour)
		sess.Set(tenant.SessionKeyCurrentTenant, sessionTenant.String())

		f.svc.Resolve(ctx, httptest.NewRequest("GET", "/albums", nil), sess)

		got, ok := rc.TenantID()
		require.True(t, ok)
		assert.Equal(t, sessionTenant, got)
	})

	t.Run("anonymous request resolves no tenant", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		f.svc.Resolve(ctx, httptest.NewRequest("GET", "/albums", nil), session.New("tok", nil, time.Hour))

		_, ok := rc.TenantID()
		assert.False(t, ok)
		_, ok = rc.UserID()
		assert.False(t, ok)
	})

	t.Run("non-string tenant claim is ignored", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		r := bearerRequest(t, map[string]any{tenant.TenantClaim: 42})
		f.svc.Resolve(ctx, r, session.New("tok", nil, time.Hour))

		_, ok := rc.TenantID()
		assert.False(t, ok)
	})

	t.Run("auto-provisions tenant for first-time user", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		user := &tenant.User{ID: uuid.New(), Email: "jane.doe@example.com", Subject: "sub-1"}
		f.users.add(user)
		sess := authedSession(user.ID)

		f.svc.Resolve(ctx, httptest.NewRequest("GET", "/albums", nil), sess)

		resolved, ok := rc.TenantID()
		require.True(t, ok)

		// Exactly one tenant and one membership created.
		assert.Equal(t, 1, f.tenants.count())
		assert.Equal(t, 1, f.memberships.count(user.ID))

		created, err := f.tenants.GetByID(ctx, resolved)
		require.NoError(t, err)
		assert.Equal(t, "jane.doe", created.Name)
		assert.Regexp(t, `^jane-doe-\d+$`, created.Slug)

		// Selection persisted to the session and to the last-tenant hint.
		stored, ok := sess.GetString(tenant.SessionKeyCurrentTenant)
		require.True(t, ok)
		assert.Equal(t, resolved.String(), stored)
		require.NotNil(t, user.LastTenantID)
		assert.Equal(t, resolved, *user.LastTenantID)
		assert.Positive(t, f.saver.saves)

		// User identity merged into the request context.
		gotUser, ok := rc.UserID()
		require.True(t, ok)
		assert.Equal(t, user.ID, gotUser)
	})

	t.Run("provisioning failure degrades to tenant-less context", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		user := &tenant.User{ID: uuid.New(), Email: "jane@example.com", Subject: "sub-1"}
		f.users.add(user)
		f.tenants.createErr = errors.New("connection refused")

		sess := authedSession(user.ID)
		f.svc.Resolve(ctx, httptest.NewRequest("GET", "/albums", nil), sess)

		_, ok := rc.TenantID()
		assert.False(t, ok, "request proceeds without a tenant")

		// User identity is still merged so the membership policy can work.
		_, ok = rc.UserID()
		assert.True(t, ok)
	})

	t.Run("auto-selects most recently used valid membership", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		t1, t2 := uuid.New(), uuid.New()
		user := &tenant.User{ID: uuid.New(), Email: "jane@example.com", Subject: "sub-1", LastTenantID: &t2}
		f.users.add(user)
		require.NoError(t, f.memberships.Create(ctx, user.ID, t1))
		require.NoError(t, f.memberships.Create(ctx, user.ID, t2))

		sess := authedSession(user.ID)
		f.svc.Resolve(ctx, httptest.NewRequest("GET", "/albums", nil), sess)

		got, ok := rc.TenantID()
		require.True(t, ok)
		assert.Equal(t, t2, got)
	})

	t.Run("stale last-tenant hint falls back to first membership", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		t1 := uuid.New()
		stale := uuid.New()
		user := &tenant.User{ID: uuid.New(), Email: "jane@example.com", Subject: "sub-1", LastTenantID: &stale}
		f.users.add(user)
		require.NoError(t, f.memberships.Create(ctx, user.ID, t1))

		sess := authedSession(user.ID)
		f.svc.Resolve(ctx, httptest.NewRequest("GET", "/albums", nil), sess)

		got, ok := rc.TenantID()
		require.True(t, ok)
		assert.Equal(t, t1, got)
	})
}

// --- switch protocol -------------------------------------------------------

func TestSwitch(t *testing.T) {
	t.Parallel()

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.Switch(context.Background(), session.New("tok", nil, time.Hour), uuid.New())
		assert.ErrorIs(t, err, tenant.ErrAuthRequired)
	})

	t.Run("denies switch without membership regardless of tenant existence", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()

		t1, t2 := uuid.New(), uuid.New()
		user := &tenant.User{ID: uuid.New(), Email: "jane@example.com", Subject: "sub-1"}
		f.users.add(user)
		require.NoError(t, f.memberships.Create(ctx, user.ID, t1))
		require.NoError(t, f.tenants.Create(ctx, &tenant.Tenant{ID: t2, Name: "other", Slug: "other"}))

		sess := authedSession(user.ID)
		sess.Set(tenant.SessionKeyCurrentTenant, t1.String())

		_, err := f.svc.Switch(ctx, sess, t2)
		assert.ErrorIs(t, err, tenant.ErrAccessDenied)

		// The session's selection is untouched.
		stored, ok := sess.GetString(tenant.SessionKeyCurrentTenant)
		require.True(t, ok)
		assert.Equal(t, t1.String(), stored)
	})

	t.Run("switch updates session, hint and request context", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx, rc := requestCtx(t)

		t1, t2 := uuid.New(), uuid.New()
		user := &tenant.User{ID: uuid.New(), Email: "jane@example.com", Subject: "sub-1"}
		f.users.add(user)
		require.NoError(t, f.memberships.Create(ctx, user.ID, t1))
		require.NoError(t, f.memberships.Create(ctx, user.ID, t2))

		sess := authedSession(user.ID)
		sess.Set(tenant.SessionKeyCurrentTenant, t1.String())

		got, err := f.svc.Switch(ctx, sess, t2)
		require.NoError(t, err)
		assert.Equal(t, t2, got)

		stored, _ := sess.GetString(tenant.SessionKeyCurrentTenant)
		assert.Equal(t, t2.String(), stored)
		require.NotNil(t, user.LastTenantID)
		assert.Equal(t, t2, *user.LastTenantID)

		current, ok := rc.TenantID()
		require.True(t, ok)
		assert.Equal(t, t2, current)
	})
}

// --- tenant deletion -------------------------------------------------------

type fakeBlobPurger struct {
	mu       sync.Mutex
	prefixes []string
	err      error
}

func (f *fakeBlobPurger) DeletePrefix(ctx context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	return f.err
}

func TestDeleteTenant(t *testing.T) {
	t.Parallel()

	seed := func(t *testing.T, f *fixture) (*tenant.User, uuid.UUID) {
		t.Helper()
		user := &tenant.User{ID: uuid.New(), Email: "jane@example.com", Subject: "sub-1"}
		f.users.add(user)
		tenantID := uuid.New()
		require.NoError(t, f.tenants.Create(context.Background(), &tenant.Tenant{ID: tenantID, Name: "mine", Slug: "mine"}))
		require.NoError(t, f.memberships.Create(context.Background(), user.ID, tenantID))
		return user, tenantID
	}

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.svc.Delete(context.Background(), session.New("tok", nil, time.Hour), uuid.New())
		assert.ErrorIs(t, err, tenant.ErrAuthRequired)
	})

	t.Run("denies deletion without membership", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user, _ := seed(t, f)

		other := uuid.New()
		require.NoError(t, f.tenants.Create(context.Background(), &tenant.Tenant{ID: other, Name: "other", Slug: "other"}))

		err := f.svc.Delete(context.Background(), authedSession(user.ID), other)
		assert.ErrorIs(t, err, tenant.ErrAccessDenied)
		assert.Equal(t, 2, f.tenants.count(), "nothing deleted")
	})

	t.Run("removes the row and purges the blob prefix", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user, tenantID := seed(t, f)

		purger := &fakeBlobPurger{}
		svc := tenant.NewService(f.tenants, f.users, f.memberships, f.saver, tenant.WithBlobPurger(purger))

		require.NoError(t, svc.Delete(context.Background(), authedSession(user.ID), tenantID))

		assert.Zero(t, f.tenants.count())
		assert.Equal(t, []string{"tenants/" + tenantID.String()}, purger.prefixes)
	})

	t.Run("blob purge failure does not fail the delete", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user, tenantID := seed(t, f)

		purger := &fakeBlobPurger{err: errors.New("s3 down")}
		svc := tenant.NewService(f.tenants, f.users, f.memberships, f.saver, tenant.WithBlobPurger(purger))

		assert.NoError(t, svc.Delete(context.Background(), authedSession(user.ID), tenantID))
		assert.Zero(t, f.tenants.count())
	})

	t.Run("clears a selection pointing at the deleted tenant", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user, tenantID := seed(t, f)

		sess := authedSession(user.ID)
		sess.Set(tenant.SessionKeyCurrentTenant, tenantID.String())

		require.NoError(t, f.svc.Delete(context.Background(), sess, tenantID))

		_, ok := sess.GetString(tenant.SessionKeyCurrentTenant)
		assert.False(t, ok)
		assert.Positive(t, f.saver.saves)
	})

	t.Run("leaves an unrelated selection alone", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user, tenantID := seed(t, f)

		other := uuid.New()
		sess := authedSession(user.ID)
		sess.Set(tenant.SessionKeyCurrentTenant, other.String())

		require.NoError(t, f.svc.Delete(context.Background(), sess, tenantID))

		stored, ok := sess.GetString(tenant.SessionKeyCurrentTenant)
		require.True(t, ok)
		assert.Equal(t, other.String(), stored)
	})
}

// --- membership sync -------------------------------------------------------

func TestSyncMemberships(t *testing.T) {
	t.Parallel()

	t.Run("creates tenants and memberships on first sync", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()

		require.NoError(t, f.svc.SyncMemberships(context.Background(), userID, []string{"org-a", "org-b"}))
		assert.Equal(t, 2, f.memberships.count(userID))
		assert.Equal(t, 2, f.tenants.count())
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		groups := []string{"org-a", "org-b"}

		require.NoError(t, f.svc.SyncMemberships(context.Background(), userID, groups))
		require.NoError(t, f.svc.SyncMemberships(context.Background(), userID, groups))

		assert.Equal(t, 2, f.memberships.count(userID))
		assert.Equal(t, 2, f.tenants.count(), "no duplicate tenants for known refs")
		assert.Zero(t, f.memberships.duplicates, "second sync must not attempt duplicate inserts")
	})

	t.Run("removes memberships no longer reported", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()

		require.NoError(t, f.svc.SyncMemberships(context.Background(), userID, []string{"org-a", "org-b"}))
		require.NoError(t, f.svc.SyncMemberships(context.Background(), userID, []string{"org-a"}))

		assert.Equal(t, 1, f.memberships.count(userID))
	})

	t.Run("tolerates duplicate-insert race as no-op", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()

		// Seed the membership as if a concurrent login inserted it between
		// our list and insert.
		require.NoError(t, f.svc.SyncMemberships(context.Background(), userID, []string{"org-a"}))
		ref, err := f.tenants.GetByExternalRef(context.Background(), "org-a")
		require.NoError(t, err)

		// Direct insert returns a 23505; the service must swallow it.
		err = f.memberships.Create(context.Background(), userID, ref.ID)
		require.Error(t, err)

		require.NoError(t, f.svc.SyncMemberships(context.Background(), userID, []string{"org-a"}))
		assert.Equal(t, 1, f.memberships.count(userID))
	})
}
