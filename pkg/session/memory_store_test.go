package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picvault/picvault/pkg/session"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	newStore := func(t *testing.T) *session.MemoryStore {
		t.Helper()
		store := session.NewMemoryStore(0)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}

	t.Run("create and get", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		s := session.New("tok-1", nil, time.Hour)
		require.NoError(t, store.Create(context.Background(), s))

		got, err := store.Get(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
	})

	t.Run("get returns isolated copy", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		s := session.New("tok-2", nil, time.Hour)
		require.NoError(t, store.Create(context.Background(), s))

		got, err := store.Get(context.Background(), "tok-2")
		require.NoError(t, err)
		got.Set("current_tenant_id", "t-1")

		again, err := store.Get(context.Background(), "tok-2")
		require.NoError(t, err)
		_, ok := again.Get("current_tenant_id")
		assert.False(t, ok, "mutating a returned session must not affect the store")
	})

	t.Run("update requires existing session", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		s := session.New("tok-3", nil, time.Hour)
		err := store.Update(context.Background(), s)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("expired session is evicted on get", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		s := session.New("tok-4", nil, time.Millisecond)
		require.NoError(t, store.Create(context.Background(), s))

		time.Sleep(5 * time.Millisecond)

		_, err := store.Get(context.Background(), "tok-4")
		assert.ErrorIs(t, err, session.ErrSessionExpired)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		s := session.New("tok-5", nil, time.Hour)
		require.NoError(t, store.Create(context.Background(), s))
		require.NoError(t, store.Delete(context.Background(), "tok-5"))

		_, err := store.Get(context.Background(), "tok-5")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("rejects nil and tokenless sessions", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		assert.ErrorIs(t, store.Create(context.Background(), nil), session.ErrInvalidSession)
		assert.ErrorIs(t, store.Create(context.Background(), &session.Session{}), session.ErrInvalidSession)
	})
}
