package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atelier-hq/atelier/internal/domain/record"
	"github.com/atelier-hq/atelier/internal/service"
)

type staffCtxKey struct{}

const headerLegacySession = "X-Legacy-Session"

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":            true,
	"/api/v1/auth/login": true,
}

// Auth returns middleware gating the migration API. A caller presents either
// a bearer token signed by the auth service or a legacy session token; in
// both cases the resolved holder must be an administrator. Rejection happens
// before any handler runs, so an unauthorized trigger has no side effects.
func Auth(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			st, errMsg := resolveCaller(r, authSvc)
			if st == nil {
				http.Error(w, `{"error":"`+errMsg+`"}`, http.StatusUnauthorized)
				return
			}
			if !st.IsAdmin {
				http.Error(w, `{"error":"administrator account required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), staffCtxKey{}, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveCaller(r *http.Request, authSvc *service.AuthService) (*record.Staff, string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			return nil, "invalid authorization header"
		}
		st, err := authSvc.ValidateAccessToken(r.Context(), token)
		if err != nil {
			return nil, "invalid token"
		}
		return st, ""
	}

	if session := r.Header.Get(headerLegacySession); session != "" {
		st, err := authSvc.ResolveLegacySession(r.Context(), session)
		if err != nil {
			return nil, "invalid session"
		}
		return st, ""
	}

	return nil, "authorization required"
}

// StaffFromContext returns the authenticated staff account from the request
// context.
func StaffFromContext(ctx context.Context) *record.Staff {
	st, _ := ctx.Value(staffCtxKey{}).(*record.Staff)
	return st
}
