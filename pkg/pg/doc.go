// Package pg manages the PostgreSQL connection pool and the row-level
// security bridge that keeps every query tenant-scoped.
//
// # Connection-level enforcement
//
// The pool is built with a BeforeAcquire hook (see rls.go) that primes each
// checked-out connection with the identity of the current request: the
// resolved tenant and user IDs are written into the connection's session
// state via set_config before the connection is handed to query code.
// Database-side policies compare each row's tenant column against that
// session variable, so repositories issue ordinary unfiltered queries and
// still only ever see their own tenant's rows.
//
// Pooled connections are reused across requests, so the hook overwrites the
// session variables on every checkout; a connection's previous borrower
// must never leak its identity into the next request.
//
// When no request context has been established (startup scripts,
// migrations, background jobs) the variables are set to the empty string,
// which the policies treat as matching nothing. A missing context therefore
// degrades to "see no tenant rows", never to "see everything".
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg, pg.WithTenantEnforcement())
//
// Multi-statement operations that must observe a consistent tenant view
// should run inside a transaction so they stay pinned to one physical
// connection for the duration.
package pg
