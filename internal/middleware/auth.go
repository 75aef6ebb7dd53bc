package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/auth"
)

type claimsCtxKey struct{}

// Authenticate admits requests carrying a valid access token and stores its
// claims on the request context for the layers below.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, problem := bearerToken(r)
			if problem != "" {
				deny(w, http.StatusUnauthorized, problem)
				return
			}
			claims, err := auth.ValidateToken(jwtSecret, raw)
			if err != nil {
				deny(w, http.StatusUnauthorized, "token rejected")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// bearerToken pulls the token out of the Authorization header. The second
// result names what is wrong with the header when no token can be read.
func bearerToken(r *http.Request) (string, string) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", "authorization header required"
	}
	scheme, token, ok := strings.Cut(h, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", "expected a Bearer token"
	}
	return token, ""
}

// RequireRestaurant scopes the request to the {rid} path segment. Staff,
// owners included, belong to exactly one restaurant, so a token for any
// other restaurant is refused.
func RequireRestaurant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			deny(w, http.StatusUnauthorized, "sign in first")
			return
		}
		rid, err := uuid.Parse(restaurantParam(r))
		if err != nil {
			deny(w, http.StatusBadRequest, "restaurant id is not a UUID")
			return
		}
		if rid != claims.RestaurantID {
			deny(w, http.StatusForbidden, "token is for a different restaurant")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func restaurantParam(r *http.Request) string {
	if v := chi.URLParam(r, "rid"); v != "" {
		return v
	}
	return r.PathValue("rid")
}

// RequireRole lets through only staff whose role is one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				deny(w, http.StatusUnauthorized, "sign in first")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				deny(w, http.StatusForbidden, "role "+claims.Role+" may not do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

// ClaimsFromContext returns nil outside an authenticated request.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsCtxKey{}).(*auth.Claims)
	return c
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
