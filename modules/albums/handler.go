package albums

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/httpx"
	"github.com/picvault/picvault/svc/tenant"
)

// AlbumRequest is the create/update input contract.
type AlbumRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Handler exposes album CRUD.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Router mounts the album routes. Returned as chi.Router so the photos
// module can hang its album-nested routes off it.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{albumID}", h.get)
	r.Put("/{albumID}", h.update)
	r.Delete("/{albumID}", h.delete)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	albums, err := h.repo.List(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, albums)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req AlbumRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		httpx.Error(w, httpx.ErrUnprocessableEntity)
		return
	}

	album := &Album{ID: uuid.New(), Title: req.Title, Description: req.Description}
	if err := h.repo.Create(r.Context(), album); err != nil {
		renderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, album)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "albumID"))
	if err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	album, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		renderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, album)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "albumID"))
	if err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	var req AlbumRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		httpx.Error(w, httpx.ErrUnprocessableEntity)
		return
	}

	album := &Album{ID: id, Title: req.Title, Description: req.Description}
	if err := h.repo.Update(r.Context(), album); err != nil {
		renderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, album)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "albumID"))
	if err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// renderError maps module errors to HTTP statuses. A request that never
// resolved a tenant is a client error; a missing row is indistinguishable
// from a row hidden by policy, both come back 404.
func renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrTenantRequired):
		httpx.Error(w, httpx.ErrBadRequest)
	case errors.Is(err, ErrAlbumNotFound):
		httpx.Error(w, httpx.ErrNotFound)
	default:
		httpx.Error(w, err)
	}
}
