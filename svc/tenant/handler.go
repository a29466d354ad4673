package tenant

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/httpx"
	"github.com/picvault/picvault/pkg/pg"
	"github.com/picvault/picvault/pkg/reqctx"
)

// SwitchRequest is the switch-tenant input contract.
type SwitchRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

// SwitchResponse is the switch-tenant output contract.
type SwitchResponse struct {
	CurrentTenantID uuid.UUID `json:"current_tenant_id"`
}

// Handler exposes the tenant HTTP surface: listing the caller's tenants and
// the explicit switch-tenant operation.
type Handler struct {
	svc      *Service
	sessions SessionProvider
}

// NewHandler creates the tenant HTTP handler.
func NewHandler(svc *Service, sessions SessionProvider) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Router mounts the tenant routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/switch", h.switchTenant)
	r.Delete("/{tenantID}", h.deleteTenant)
	return r
}

// list returns the tenants the current user belongs to. Works before any
// tenant is selected: the membership table's policy admits rows matching
// the session's user as well as its tenant.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := reqctx.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, httpx.ErrUnauthorized)
		return
	}

	tenants, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, tenants)
}

func (h *Handler) switchTenant(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	if req.TenantID == uuid.Nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	sess, err := h.sessions.Ensure(r.Context(), w, r)
	if err != nil {
		httpx.Error(w, httpx.ErrUnauthorized)
		return
	}

	current, err := h.svc.Switch(r.Context(), sess, req.TenantID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAuthRequired):
			httpx.Error(w, httpx.ErrUnauthorized)
		case errors.Is(err, ErrAccessDenied):
			httpx.Error(w, httpx.ErrForbidden)
		default:
			httpx.Error(w, err)
		}
		return
	}

	httpx.JSON(w, http.StatusOK, SwitchResponse{CurrentTenantID: current})
}

// deleteTenant is the explicit admin delete: the row cascade and blob
// purge remove everything the tenant owns. A policy rejection from the
// database reads as forbidden, same as a failed membership check.
func (h *Handler) deleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	sess, err := h.sessions.Ensure(r.Context(), w, r)
	if err != nil {
		httpx.Error(w, httpx.ErrUnauthorized)
		return
	}

	if err := h.svc.Delete(r.Context(), sess, id); err != nil {
		switch {
		case errors.Is(err, ErrAuthRequired):
			httpx.Error(w, httpx.ErrUnauthorized)
		case errors.Is(err, ErrAccessDenied), pg.IsInsufficientPrivilegeError(err):
			httpx.Error(w, httpx.ErrForbidden)
		case errors.Is(err, ErrTenantNotFound):
			httpx.Error(w, httpx.ErrNotFound)
		default:
			httpx.Error(w, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
