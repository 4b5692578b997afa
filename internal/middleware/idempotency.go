package middleware

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/josh-kwaku/recipe-wallet/internal/handler"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

// Idempotency moves the Idempotency-Key header into the request context.
// With required set, a request without the header is rejected.
func Idempotency(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				if required {
					handler.RespondAppError(w, handler.ErrMissingIdempotencyKey, nil)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !validIdempotencyKey(key) {
				handler.RespondAppError(w, handler.ErrInvalidIdempotencyKey, nil)
				return
			}

			ctx := handler.ContextWithIdempotencyKey(r.Context(), key)
			ctx = logging.With(ctx, "idempotency_key", key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validIdempotencyKey(key string) bool {
	if len(key) > maxIdempotencyKeyLen {
		return false
	}
	for _, c := range key {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) {
			return false
		}
	}
	return true
}
