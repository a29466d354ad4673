package photos

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/httpx"
	"github.com/picvault/picvault/svc/tenant"
)

// maxUploadSize caps a single photo upload at 32 MiB.
const maxUploadSize = 32 << 20

// Handler exposes the photo routes.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// AlbumRouter serves the album-nested routes. Mounted under an albums
// route carrying an {albumID} parameter.
func (h *Handler) AlbumRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.upload)
	return r
}

// Router serves the photo-addressed routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Delete("/{photoID}", h.delete)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "albumID"))
	if err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	photos, err := h.svc.ListByAlbum(r.Context(), albumID)
	if err != nil {
		renderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, photos)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	albumID, err := uuid.Parse(chi.URLParam(r, "albumID"))
	if err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	_, fh, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, httpx.ErrUnprocessableEntity)
		return
	}

	photo, err := h.svc.Upload(r.Context(), albumID, fh)
	if err != nil {
		renderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, photo)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "photoID"))
	if err != nil {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrTenantRequired):
		httpx.Error(w, httpx.ErrBadRequest)
	case errors.Is(err, ErrFileRequired):
		httpx.Error(w, httpx.ErrUnprocessableEntity)
	case errors.Is(err, ErrPhotoNotFound):
		httpx.Error(w, httpx.ErrNotFound)
	default:
		httpx.Error(w, err)
	}
}
