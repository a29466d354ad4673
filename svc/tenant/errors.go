package tenant

import "errors"

var (
	// ErrTenantRequired is returned when an operation that must inject a
	// tenant ID runs in a request with no resolved tenant. A client error:
	// the caller can recover by providing proper credentials or a session.
	ErrTenantRequired = errors.New("tenant: tenant context required")

	// ErrAuthRequired is returned when an operation requires an
	// authenticated user and the session has none.
	ErrAuthRequired = errors.New("tenant: authentication required")

	// ErrAccessDenied is returned when the user has no membership in the
	// requested tenant. There is no admin bypass in the request path.
	ErrAccessDenied = errors.New("tenant: access denied")

	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant: tenant not found")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("tenant: user not found")

	// ErrEmailTaken is returned when a login would claim an email address
	// that already belongs to a different subject.
	ErrEmailTaken = errors.New("tenant: email already taken by another user")
)
