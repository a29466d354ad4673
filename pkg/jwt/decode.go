package jwt

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// BearerToken extracts a bearer token from the Authorization header per
// RFC 6750. Returns false when the header is absent or not a Bearer scheme.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// DecodePayload unmarshals a token's claims segment WITHOUT verifying the
// signature. It exists for the tenant-resolution path, which only inspects
// claims of tokens that an upstream authentication layer has already
// verified (or that arrived over a trusted channel such as a direct TLS
// exchange with the issuer). Never treat its output as authenticated on
// its own.
func DecodePayload(tokenString string, claims any) error {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return ErrInvalidToken
	}

	claimsJSON, err := base64URLDecode(parts[1])
	if err != nil {
		return fmt.Errorf("failed to decode claims: %w", err)
	}

	if err := json.Unmarshal(claimsJSON, claims); err != nil {
		return fmt.Errorf("failed to unmarshal claims: %w", err)
	}
	return nil
}
