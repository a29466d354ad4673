// Package tenant owns multi-tenant identity: the tenant, user and
// membership models, per-request tenant resolution, the switch-tenant
// protocol and identity-provider membership sync.
//
// Resolution runs once per request, inside Middleware, and writes its
// outcome into the request context cell. The priority order is bearer
// token claim, then the session's stored selection, then auto-provision
// or auto-select for authenticated users with memberships on file.
// Downstream code never resolves tenants itself; it reads the cell
// (repositories via Scoped) or relies on connection-level enforcement
// to scope its queries.
package tenant
