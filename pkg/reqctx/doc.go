// Package reqctx provides a mutable, request-scoped state cell that travels
// with the standard context.Context through every layer of request handling.
//
// Each inbound request gets exactly one *Context instance, established once by
// the request-dispatch scaffolding via With. Downstream code (resolution
// middleware, services, repositories, the database connection bridge) reads
// and mutates that same instance without any parameter threading beyond the
// context.Context it already carries. Because every request owns a distinct
// instance, concurrently-running requests can never observe each other's
// state, no matter how their goroutines interleave.
//
// # Mutation semantics
//
// Unlike plain context.WithValue chains, the cell is updated in place: a
// field set after a callee captured the *Context is still visible to that
// callee. This mirrors how tenant resolution works: the middleware
// establishes an empty cell first, then fills in tenant and user identity as
// resolution proceeds, and code holding an earlier reference sees the final
// values.
//
// # Failure semantics
//
// Accessing the cell outside any established scope is a programming error:
// the dispatch scaffolding was not wired up. MustFromContext therefore panics
// rather than returning a zero value, because proceeding without the cell
// would silently disable tenant isolation downstream.
//
// # Usage
//
//	rc := reqctx.New()
//	ctx := reqctx.With(r.Context(), rc)
//	// ... later, anywhere below:
//	rc := reqctx.MustFromContext(ctx)
//	if id, ok := rc.TenantID(); ok { ... }
package reqctx
