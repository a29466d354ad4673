package auth

import "errors"

var (
	ErrInvalidState   = errors.New("auth: invalid or expired state")
	ErrInvalidCode    = errors.New("auth: invalid authorization code")
	ErrMissingIDToken = errors.New("auth: token response carried no id_token")
	ErrInvalidIDToken = errors.New("auth: malformed id_token")
	ErrMissingSubject = errors.New("auth: id_token carried no subject")
)
