package session

import "time"

type Config struct {
	CookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"pv_session"` // CookieName is the name of the session cookie.
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"168h"`               // TTL is the session lifetime.
	SecureCookies bool          `env:"SESSION_SECURE_COOKIES" envDefault:"true"`    // SecureCookies restricts cookies to HTTPS.

	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"` // CleanupInterval is the sweep period for the in-memory store.
}

// DefaultConfig returns production-safe session defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:      "pv_session",
		TTL:             168 * time.Hour,
		SecureCookies:   true,
		CleanupInterval: 5 * time.Minute,
	}
}
