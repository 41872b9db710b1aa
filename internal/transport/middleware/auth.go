package middleware

import (
	"net/http"
	"strings"

	"github.com/heartmarshall/hideout-backend/internal/auth"
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateAccessToken(token string) (auth.Identity, error)
}

// Auth verifies a Supabase access token and stores the caller's identity and
// raw token in the request context. Requests without a token pass through
// anonymously. Browsers cannot set headers on EventSource, so stream
// endpoints may pass the token as the access_token query parameter.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				next.ServeHTTP(w, r) // Anonymous
				return
			}

			id, err := validator.ValidateAccessToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := ctxutil.WithUserID(r.Context(), id.UserID)
			ctx = ctxutil.WithRole(ctx, string(id.Role))
			ctx = ctxutil.WithAccessToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ctxutil.UserIDFromCtx(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose token carries a different role.
func RequireRole(role domain.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ctxutil.UserIDFromCtx(r.Context()); !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if ctxutil.RoleFromCtx(r.Context()) != string(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
