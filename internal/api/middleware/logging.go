package middleware

import (
	"net/http"
	"time"

	"designhub/internal/platform/logger"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request once the handler has finished.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		}
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			logger.Error(r.Context(), "request failed", fields...)
		case ww.Status() >= http.StatusBadRequest:
			logger.Warn(r.Context(), "request rejected", fields...)
		default:
			logger.Info(r.Context(), "request served", fields...)
		}
	})
}
