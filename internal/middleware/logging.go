package middleware

import (
	"net/http"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// LoggingMiddleware logs each completed request with its request id and,
// when tracing is active, the trace and span ids.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}

			reqLog := logger.WithTrace(r.Context(), log)
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				reqLog.Error("Request completed", fields...)
			case ww.Status() >= http.StatusBadRequest:
				reqLog.Warn("Request completed", fields...)
			default:
				reqLog.Info("Request completed", fields...)
			}
		})
	}
}
