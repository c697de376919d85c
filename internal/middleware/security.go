package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
)

// SecurityHeaders sets the CSP (with the per-request nonce from
// NonceMiddleware) and the usual hardening headers. Must run after
// NonceMiddleware.
func SecurityHeaders(isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scriptSrc := "'self'"
			if nonce := GetNonce(r.Context()); nonce != "" {
				scriptSrc = fmt.Sprintf("'self' 'nonce-%s'", nonce)
			}

			h := w.Header()
			h.Set("Content-Security-Policy", "default-src 'self'; script-src "+scriptSrc+
				"; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'"+
				"; frame-ancestors 'none'; base-uri 'self'; form-action 'self'")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if isProduction {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BasicAuth guards h with a single user/password pair. An empty user
// disables the check.
func BasicAuth(user, pass string, h http.Handler) http.Handler {
	if user == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}
