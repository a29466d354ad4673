// Package session provides cookie-based sessions with pluggable persistence
// (in-memory for development, Redis for production). The session data map is
// where the currently selected tenant lives between requests.
package session
