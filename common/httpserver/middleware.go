package httpserver

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/common/middleware"
)

// Recover перехватывает паники в обработчиках и возвращает 500.
func Recover(log *logger.Logger) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rcv := recover(); rcv != nil {
					if rcv == http.ErrAbortHandler {
						panic(rcv)
					}
					log.WithContext(r.Context()).Error("http: panic in handler",
						zap.String("path", r.URL.Path),
						zap.String("panic", fmt.Sprint(rcv)),
						zap.ByteString("stack", debug.Stack()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal server error"}}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS возвращает permissive CORS: любые origin, методы и заголовки.
func CORS() middleware.Middleware {
	return cors.AllowAll().Handler
}
