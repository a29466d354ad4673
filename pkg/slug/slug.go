// Package slug generates URL-safe, lowercase-kebab identifiers from
// arbitrary strings, with optional suffixes for uniqueness.
package slug

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Option configures slug generation.
type Option func(*config)

type config struct {
	maxLength    int
	suffix       string
	suffixLength int
}

// MaxLength truncates the slug to at most n runes (before any suffix).
func MaxLength(n int) Option {
	return func(c *config) { c.maxLength = n }
}

// WithSuffix appends a fixed disambiguating suffix, e.g. a timestamp.
func WithSuffix(s string) Option {
	return func(c *config) { c.suffix = s }
}

// WithRandomSuffix appends a random alphanumeric suffix of the given length
// to reduce collision probability.
func WithRandomSuffix(length int) Option {
	return func(c *config) { c.suffixLength = length }
}

// transliterator strips combining marks after canonical decomposition, so
// "café" becomes "cafe" before slugification.
var transliterator = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts s into a lowercase-kebab slug: diacritics are transliterated
// to ASCII, runs of non-alphanumeric characters collapse into single hyphens,
// and leading/trailing hyphens are trimmed.
func Make(s string, opts ...Option) string {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if normalized, _, err := transform.String(transliterator, s); err == nil {
		s = normalized
	}

	var b strings.Builder
	b.Grow(len(s))

	lastWasHyphen := true // avoids a leading hyphen
	count := 0
	for _, r := range s {
		if cfg.maxLength > 0 && count >= cfg.maxLength {
			break
		}

		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasHyphen = false
			count++
			continue
		}

		if !lastWasHyphen {
			b.WriteByte('-')
			lastWasHyphen = true
			count++
		}
	}

	result := strings.TrimSuffix(b.String(), "-")

	if cfg.suffix != "" {
		result = join(result, cfg.suffix)
	}
	if cfg.suffixLength > 0 {
		result = join(result, randomSuffix(cfg.suffixLength))
	}

	return result
}

func join(slug, suffix string) string {
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

func randomSuffix(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		// Deterministic fallback keeps slug generation infallible.
		for i := range b {
			b[i] = charset[i%len(charset)]
		}
		return string(b)
	}
	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}
	return string(b)
}
