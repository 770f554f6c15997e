package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// Identity is what the bearer middleware stores on the request context.
type Identity struct {
	UserID int64
	Email  string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Bearer rejects requests without a valid access token via unauthorized.
func Bearer(issuer *Issuer, unauthorized func(w http.ResponseWriter, r *http.Request, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				unauthorized(w, r, "Missing bearer token")
				return
			}
			claims, err := issuer.Parse(strings.TrimSpace(token), TokenAccess)
			if err != nil {
				unauthorized(w, r, "Invalid or expired token")
				return
			}
			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
