package reqctx

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// contextKey prevents collisions with other packages using context values.
type contextKey struct{}

// Context holds per-request state shared by every layer of request handling.
// A single instance is created per inbound request and mutated in place as
// tenant resolution proceeds; all readers share the same instance. Safe for
// concurrent use.
type Context struct {
	mu       sync.RWMutex
	tenantID *uuid.UUID
	userID   *uuid.UUID
	values   map[string]any
}

// Partial describes a merge into an existing Context. Nil fields are left
// untouched, so resolution steps can each contribute what they learned
// without clobbering earlier steps.
type Partial struct {
	TenantID *uuid.UUID
	UserID   *uuid.UUID
}

// New creates an empty request context cell.
func New() *Context {
	return &Context{}
}

// With attaches the cell to ctx. Nested calls establish a narrower scope:
// code inside sees the inner cell, code after returns to the outer one.
func With(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext retrieves the cell from ctx.
// Returns nil, false if no cell has been established.
func FromContext(ctx context.Context) (*Context, bool) {
	rc, ok := ctx.Value(contextKey{}).(*Context)
	return rc, ok && rc != nil
}

// MustFromContext retrieves the cell or panics. A missing cell means the
// request-dispatch scaffolding never called With: a wiring bug, not a
// runtime condition worth recovering from.
func MustFromContext(ctx context.Context) *Context {
	rc, ok := FromContext(ctx)
	if !ok {
		panic("reqctx: no request context established")
	}
	return rc
}

// TenantID returns the resolved tenant ID, if any.
func (c *Context) TenantID() (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tenantID == nil {
		return uuid.UUID{}, false
	}
	return *c.tenantID, true
}

// UserID returns the authenticated user ID, if any.
func (c *Context) UserID() (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.userID == nil {
		return uuid.UUID{}, false
	}
	return *c.userID, true
}

// SetTenantID records the resolved tenant, visible to all holders of the cell.
func (c *Context) SetTenantID(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenantID = &id
}

// SetUserID records the authenticated user, visible to all holders of the cell.
func (c *Context) SetUserID(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = &id
}

// Update merges non-nil fields of p into the cell in place. Fields not named
// by p keep their current values.
func (c *Context) Update(p Partial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.TenantID != nil {
		id := *p.TenantID
		c.tenantID = &id
	}
	if p.UserID != nil {
		id := *p.UserID
		c.userID = &id
	}
}

// Value returns an arbitrary request-scoped value stored under key.
// Used for shared handles that are not identity (e.g. a schema registry).
func (c *Context) Value(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// SetValue stores an arbitrary request-scoped value under key.
func (c *Context) SetValue(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

// TenantIDFromContext provides fast access to the tenant ID without exposing
// the full cell. Returns zero UUID and false if no cell or no tenant is set.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	rc, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return rc.TenantID()
}

// UserIDFromContext provides fast access to the user ID without exposing
// the full cell. Returns zero UUID and false if no cell or no user is set.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	rc, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return rc.UserID()
}

// LoggerExtractor returns a function that enriches log records with the
// resolved tenant and user IDs when present.
func LoggerExtractor() func(ctx context.Context) ([]slog.Attr, bool) {
	return func(ctx context.Context) ([]slog.Attr, bool) {
		rc, ok := FromContext(ctx)
		if !ok {
			return nil, false
		}
		var attrs []slog.Attr
		if id, ok := rc.TenantID(); ok {
			attrs = append(attrs, slog.String("tenant_id", id.String()))
		}
		if id, ok := rc.UserID(); ok {
			attrs = append(attrs, slog.String("user_id", id.String()))
		}
		return attrs, len(attrs) > 0
	}
}
