// Package jwt implements HMAC-SHA256 JWT generation and verification, plus
// an explicitly-unverified payload decoder used by the tenant-resolution
// path behind upstream authentication.
package jwt
