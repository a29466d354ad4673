package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/picvault/picvault/pkg/jwt"
	"github.com/picvault/picvault/pkg/reqctx"
	"github.com/picvault/picvault/svc/tenant"
)

// UserDirectory upserts local users keyed by the identity provider's
// subject. Satisfied by *tenant.PGUserRepository.
type UserDirectory interface {
	UpsertBySubject(ctx context.Context, subject, email string) (*tenant.User, error)
}

// MembershipSyncer reconciles a user's tenant memberships with the group
// identifiers the provider reports. Satisfied by *tenant.Service.
type MembershipSyncer interface {
	SyncMemberships(ctx context.Context, userID uuid.UUID, externalRefs []string) error
}

// Service drives the OpenID Connect authorization-code flow against a
// Keycloak realm and lands the result in local user and membership rows.
type Service struct {
	cfg    Config
	oauth  *oauth2.Config
	states StateStore
	users  UserDirectory
	sync   MembershipSyncer
	logger *slog.Logger

	endSessionURL string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService builds the OIDC service. Endpoints follow the Keycloak realm
// layout under the issuer URL.
func NewService(cfg Config, states StateStore, users UserDirectory, sync MembershipSyncer, opts ...Option) *Service {
	issuer := strings.TrimRight(cfg.IssuerURL, "/")
	s := &Service{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  issuer + "/protocol/openid-connect/auth",
				TokenURL: issuer + "/protocol/openid-connect/token",
			},
		},
		states:        states,
		users:         users,
		sync:          sync,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		endSessionURL: issuer + "/protocol/openid-connect/logout",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AuthURL generates the provider authorization URL with a one-time state
// token for CSRF protection.
func (s *Service) AuthURL(ctx context.Context) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	if err := s.states.Store(ctx, state, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// Result is a completed authentication: the local user plus the raw
// id_token, kept for the provider's logout hint.
type Result struct {
	User    *tenant.User
	IDToken string
}

// Authenticate handles the provider callback: validates the one-time
// state, exchanges the code, reads the id_token claims and upserts the
// local user. When the token carries the groups claim, memberships are
// reconciled before returning; a sync failure is logged, not fatal, so a
// provider-side misconfiguration cannot lock users out entirely.
func (s *Service) Authenticate(ctx context.Context, code, state string) (*Result, error) {
	if err := s.states.Consume(ctx, state); err != nil {
		if errors.Is(err, ErrInvalidState) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("validate state: %w", err)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, ErrInvalidCode
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	// The token came over the provider's TLS channel in a direct
	// code-for-token exchange, which is what authenticates it; the claims
	// are decoded without a second signature check.
	var claims map[string]any
	if err := jwt.DecodePayload(rawIDToken, &claims); err != nil {
		return nil, errors.Join(ErrInvalidIDToken, err)
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrMissingSubject
	}
	email, _ := claims["email"].(string)

	user, err := s.users.UpsertBySubject(ctx, subject, email)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	// Merge the user into the request context right away: the membership
	// writes below run on connections primed from this cell, and the
	// membership table admits writes only for the session's own user.
	if rc, ok := reqctx.FromContext(ctx); ok {
		rc.SetUserID(user.ID)
	}

	if groups, ok := groupRefs(claims[s.cfg.GroupsClaim]); ok {
		if err := s.sync.SyncMemberships(ctx, user.ID, groups); err != nil {
			s.logger.WarnContext(ctx, "membership sync failed", "error", err, "user_id", user.ID)
		}
	}

	return &Result{User: user, IDToken: rawIDToken}, nil
}

// LogoutURL builds the provider's end-session URL. The id_token hint lets
// Keycloak skip its logout confirmation page.
func (s *Service) LogoutURL(idTokenHint string) string {
	q := url.Values{}
	q.Set("client_id", s.cfg.ClientID)
	if s.cfg.PostLogoutRedirectURL != "" {
		q.Set("post_logout_redirect_uri", s.cfg.PostLogoutRedirectURL)
	}
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	return s.endSessionURL + "?" + q.Encode()
}

// groupRefs normalizes the groups claim into external tenant references.
// Keycloak reports group paths ("/org-a"); the leading slash is stripped
// and nested paths are kept verbatim.
func groupRefs(claim any) ([]string, bool) {
	raw, ok := claim.([]any)
	if !ok {
		return nil, false
	}
	refs := make([]string, 0, len(raw))
	for _, g := range raw {
		name, ok := g.(string)
		if !ok {
			continue
		}
		name = strings.TrimPrefix(name, "/")
		if name != "" {
			refs = append(refs, name)
		}
	}
	return refs, true
}
