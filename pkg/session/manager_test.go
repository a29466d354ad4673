package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picvault/picvault/pkg/session"
)

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	return session.NewManager(store, session.Config{
		CookieName: "pv_session",
		TTL:        time.Hour,
	})
}

func requestWithCookie(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestManagerEnsure(t *testing.T) {
	t.Parallel()

	t.Run("creates anonymous session and cookie", func(t *testing.T) {
		t.Parallel()

		m := newManager(t)
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/", nil)

		s, err := m.Ensure(context.Background(), w, r)
		require.NoError(t, err)
		assert.False(t, s.IsAuthenticated())

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, s.Token, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("returns existing session on subsequent request", func(t *testing.T) {
		t.Parallel()

		m := newManager(t)
		w := httptest.NewRecorder()
		first, err := m.Ensure(context.Background(), w, httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)

		second, err := m.Ensure(context.Background(), httptest.NewRecorder(), requestWithCookie(w))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})
}

func TestManagerAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("rotates token and keeps data", func(t *testing.T) {
		t.Parallel()

		m := newManager(t)
		w := httptest.NewRecorder()
		anon, err := m.Ensure(context.Background(), w, httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)

		anon.Set("oauth_state", "xyz")
		require.NoError(t, m.Save(context.Background(), anon))

		userID := uuid.New()
		w2 := httptest.NewRecorder()
		authed, err := m.Authenticate(context.Background(), w2, requestWithCookie(w), userID)
		require.NoError(t, err)

		assert.True(t, authed.IsAuthenticated())
		assert.Equal(t, userID, *authed.UserID)
		assert.NotEqual(t, anon.Token, authed.Token, "token must rotate on login")

		state, ok := authed.GetString("oauth_state")
		require.True(t, ok)
		assert.Equal(t, "xyz", state)

		// The old token no longer resolves.
		_, err = m.Get(context.Background(), requestWithCookie(w))
		assert.Error(t, err)
	})
}

func TestManagerDestroy(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	w := httptest.NewRecorder()
	_, err := m.Ensure(context.Background(), w, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	w2 := httptest.NewRecorder()
	require.NoError(t, m.Destroy(context.Background(), w2, requestWithCookie(w)))

	_, err = m.Get(context.Background(), requestWithCookie(w))
	assert.Error(t, err)

	cookies := w2.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}
