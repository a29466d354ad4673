// Package auth implements login against an OpenID Connect provider
// (Keycloak realm layout): authorization-code flow with one-time state,
// id_token claim extraction, local user upsert keyed by subject and
// group-to-tenant membership sync.
package auth
