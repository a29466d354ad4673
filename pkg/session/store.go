package session

import "context"

// Store defines the interface for session persistence. Implementations must
// make Update durable before returning: tenant selection is written to the
// session right before redirects that depend on it.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by token.
	Get(ctx context.Context, token string) (*Session, error)

	// Update updates an existing session.
	Update(ctx context.Context, session *Session) error

	// Delete removes a session by token.
	Delete(ctx context.Context, token string) error
}
