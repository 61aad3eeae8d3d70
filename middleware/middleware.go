package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	credgate "github.com/varkas/credgate"
	"github.com/varkas/credgate/session"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the validated claims Guard attached to the
// request context.
func ClaimsFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*session.Claims)
	return claims, ok
}

// Guard rejects requests without a valid bearer token and attaches the
// parsed claims to the request context.
func Guard(engine *credgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.ParseToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole refuses authenticated requests whose claims carry a different
// role. It must run inside Guard.
func RequireRole(role credgate.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Role != role.String() {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Throttle applies the engine's general endpoint-class budget, answering
// denied requests with 429 and a Retry-After header.
func Throttle(engine *credgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			ctx := credgate.WithClientIP(r.Context(), clientIP(r))
			if err := engine.AllowGeneral(ctx); err != nil {
				var limited *credgate.RateLimitedError
				if errors.As(err, &limited) {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limited)))
				}
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// A RemoteAddr without a port (some proxies, tests) is the host.
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(limited *credgate.RateLimitedError) int {
	secs := int(limited.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
