package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/recipe-wallet/internal/auth"
	"github.com/josh-kwaku/recipe-wallet/internal/handler"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
)

// Auth requires a bearer JWT and stores its subject as the caller's
// account id.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, handler.ErrMissingToken)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				unauthorized(w, handler.ErrInvalidToken)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				logging.FromContext(r.Context()).Debug("token rejected", "error", err)
				unauthorized(w, handler.ErrInvalidToken)
				return
			}

			ctx := auth.ContextWithAccountID(r.Context(), claims.UserID)
			ctx = logging.With(ctx, "user_id", claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credentials of a Bearer authorization header.
// The scheme name is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, appErr *handler.AppError) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="wallet"`)
	handler.RespondAppError(w, appErr, nil)
}
