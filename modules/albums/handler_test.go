package albums_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/picvault/picvault/modules/albums"
	"github.com/picvault/picvault/pkg/reqctx"
)

// serve runs one request through the handler with a pre-resolved tenant.
func serve(t *testing.T, q *fakeQuerier, tenantID *uuid.UUID, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := albums.NewHandler(albums.NewRepository(q)).Router()

	r := httptest.NewRequest(method, target, strings.NewReader(body))
	rc := reqctx.New()
	if tenantID != nil {
		rc.SetTenantID(*tenantID)
	}
	r = r.WithContext(reqctx.With(r.Context(), rc))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandlerCreate(t *testing.T) {
	t.Parallel()

	t.Run("creates album for the resolved tenant", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		now := time.Now()
		q := &fakeQuerier{rowVals: [][]any{{now, now}}}

		w := serve(t, q, &tenantID, "POST", "/", `{"title":"Holidays"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), tenantID.String())
	})

	t.Run("rejects create without a tenant", func(t *testing.T) {
		t.Parallel()

		w := serve(t, &fakeQuerier{}, nil, "POST", "/", `{"title":"Holidays"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects blank title", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		w := serve(t, &fakeQuerier{}, &tenantID, "POST", "/", `{"title":"   "}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestHandlerGet(t *testing.T) {
	t.Parallel()

	t.Run("hidden row reads as not found", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		q := &fakeQuerier{rowErr: pgx.ErrNoRows}

		w := serve(t, q, &tenantID, "GET", "/"+uuid.New().String(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		w := serve(t, &fakeQuerier{}, &tenantID, "GET", "/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
