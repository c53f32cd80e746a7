package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
)

// RequestID прокидывает X-Request-ID (или генерирует новый) в контекст и ответ.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			ctx := logger.ContextWithRequestID(r.Context(), reqID)
			w.Header().Set("X-Request-ID", reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
