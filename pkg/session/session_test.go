package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picvault/picvault/pkg/session"
)

func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("anonymous session is not authenticated", func(t *testing.T) {
		t.Parallel()

		s := session.New("tok", nil, time.Hour)
		assert.False(t, s.IsAuthenticated())
		assert.False(t, s.IsExpired())
	})

	t.Run("authenticated session", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		s := session.New("tok", &userID, time.Hour)
		assert.True(t, s.IsAuthenticated())
	})

	t.Run("expiry", func(t *testing.T) {
		t.Parallel()

		s := session.New("tok", nil, -time.Minute)
		assert.True(t, s.IsExpired())
	})

	t.Run("data accessors", func(t *testing.T) {
		t.Parallel()

		s := session.New("tok", nil, time.Hour)
		s.Set("current_tenant_id", "t-1")

		v, ok := s.GetString("current_tenant_id")
		require.True(t, ok)
		assert.Equal(t, "t-1", v)

		_, ok = s.GetString("missing")
		assert.False(t, ok)

		s.Delete("current_tenant_id")
		_, ok = s.Get("current_tenant_id")
		assert.False(t, ok)
	})
}
