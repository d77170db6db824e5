package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/noodklaar/storefront/internal/platform/requestctx"
)

const (
	// DefaultCookieName is the cookie carrying the shopper session identifier.
	DefaultCookieName = "sid"
	// DefaultTTL controls how long the session cookie stays valid without activity.
	DefaultTTL = 30 * 24 * time.Hour
)

type middlewareConfig struct {
	cookieName string
	ttl        time.Duration
	secure     bool
	idGen      func() string
}

// MiddlewareOption customises the session middleware.
type MiddlewareOption func(*middlewareConfig)

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		name = strings.TrimSpace(name)
		if name != "" {
			cfg.cookieName = name
		}
	}
}

// WithTTL overrides the cookie lifetime.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithSecureCookies toggles the Secure cookie attribute for non-TLS local development.
func WithSecureCookies(secure bool) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.secure = secure
	}
}

// WithIDGenerator overrides the session identifier generator, primarily for testing.
func WithIDGenerator(gen func() string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if gen != nil {
			cfg.idGen = gen
		}
	}
}

// Middleware ensures every request carries a shopper session identifier. A
// missing or invalid cookie results in a fresh session; existing cookies get
// their expiry extended on each request.
func Middleware(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		cookieName: DefaultCookieName,
		ttl:        DefaultTTL,
		secure:     true,
		idGen:      func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionIDFromRequest(r, cfg.cookieName)
			if sessionID == "" {
				sessionID = cfg.idGen()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cfg.cookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(cfg.ttl / time.Second),
				HttpOnly: true,
				Secure:   cfg.secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := requestctx.WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromRequest returns the session identifier attached to the request context.
func FromRequest(r *http.Request) string {
	return requestctx.SessionID(r.Context())
}

func sessionIDFromRequest(r *http.Request, cookieName string) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return ""
	}
	if _, err := ulid.ParseStrict(value); err != nil {
		return ""
	}
	return value
}
