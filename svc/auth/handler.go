package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/picvault/picvault/pkg/httpx"
	"github.com/picvault/picvault/pkg/session"
)

// SessionKeyIDToken stores the provider id_token in the session so logout
// can pass it back as a hint.
const SessionKeyIDToken = "id_token"

// SessionManager is the session surface the auth handler needs. Satisfied
// by *session.Manager.
type SessionManager interface {
	Get(ctx context.Context, r *http.Request) (*session.Session, error)
	Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Handler exposes the browser-facing login flow: redirect to the provider,
// accept the callback, end the session.
type Handler struct {
	svc      *Service
	sessions SessionManager
}

func NewHandler(svc *Service, sessions SessionManager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Router mounts the auth routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", h.login)
	r.Get("/callback", h.callback)
	r.Get("/logout", h.logout)
	return r
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.AuthURL(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		httpx.Error(w, httpx.ErrBadRequest)
		return
	}

	res, err := h.svc.Authenticate(r.Context(), code, state)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidState), errors.Is(err, ErrInvalidCode):
			httpx.Error(w, httpx.ErrUnauthorized)
		default:
			httpx.Error(w, err)
		}
		return
	}

	sess, err := h.sessions.Authenticate(r.Context(), w, r, res.User.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	sess.Set(SessionKeyIDToken, res.IDToken)
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		httpx.Error(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var idToken string
	if sess, err := h.sessions.Get(r.Context(), r); err == nil {
		idToken, _ = sess.GetString(SessionKeyIDToken)
	}

	// Best effort: the provider redirect still works with a dead session.
	_ = h.sessions.Destroy(r.Context(), w, r)

	http.Redirect(w, r, h.svc.LogoutURL(idToken), http.StatusFound)
}
