package storage

import "errors"

var (
	ErrInvalidConfig     = errors.New("storage: bucket and region are required")
	ErrInvalidKey        = errors.New("storage: invalid object key")
	ErrObjectNotFound    = errors.New("storage: object not found")
	ErrBucketNotFound    = errors.New("storage: bucket not found")
	ErrAccessDenied      = errors.New("storage: access denied")
	ErrStoreUnavailable  = errors.New("storage: service unavailable")
	ErrOperationTimeout  = errors.New("storage: operation timed out")
	ErrOperationCanceled = errors.New("storage: operation canceled")
)
