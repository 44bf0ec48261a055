package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/af-corp/commandgate/internal/httputil"
)

// Middleware returns a chi middleware that authenticates requests via
// Bearer token. Unlike a route guard, it is non-terminal for absent
// credentials: each command declares its own auth requirement, so an
// anonymous caller proceeds with an anonymous identity and the dispatch
// pipeline decides. A presented-but-invalid key is still rejected here.
func Middleware(store KeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				ctx := ContextWithAuth(r.Context(), Anonymous())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				httputil.WriteAuthError(w, reqID, "Invalid Authorization format. Use: Authorization: Bearer <api-key>")
				return
			}
			if token == "" {
				httputil.WriteAuthError(w, reqID, "Empty API key")
				return
			}

			keyHash := HashKey(token)
			meta, err := store.Lookup(r.Context(), keyHash)
			if err != nil {
				slog.Error("key lookup failed", "error", err, "key_prefix", safePrefix(token))
				httputil.WriteInternalError(w, reqID, "Internal error during authentication")
				return
			}
			if meta == nil {
				slog.Warn("auth failed: key not found", "key_prefix", safePrefix(token))
				httputil.WriteAuthError(w, reqID, "Invalid API key")
				return
			}

			info := &AuthInfo{
				KeyID:             meta.ID,
				OrganizationID:    meta.OrganizationID,
				UserID:            meta.UserID,
				Permissions:       meta.Permissions,
				RPMLimit:          meta.RPMLimit,
				DailyCommandLimit: meta.DailyCommandLimit,
			}

			ctx := ContextWithAuth(r.Context(), info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// safePrefix returns a safe-to-log prefix of an API key (never the full key).
func safePrefix(key string) string {
	if len(key) > 16 {
		return key[:16] + "..."
	}
	return key
}
