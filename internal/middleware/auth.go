package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tenant-booking-api/internal/auth"
	"tenant-booking-api/internal/model"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Authorizer verifies a bearer credential and decides whether its holder may
// continue. It returns model.ErrUnauthorized or model.ErrForbidden.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*auth.Claims, error)
}

// BearerToken returns the credential from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// Auth rejects requests without an authorized bearer credential: 401 when it
// is missing or fails verification, 403 when it is valid but not allowed.
func Auth(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := BearerToken(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			claims, err := a.Authorize(r.Context(), tok)
			switch {
			case err == nil:
			case errors.Is(err, model.ErrForbidden):
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			case errors.Is(err, model.ErrUnauthorized):
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// ClaimsFrom returns the claims stored by Auth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}
