package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/inventory-cart/internal/logger"
)

// Logging attaches the chi request id to the request logger and records the
// start and completion of every request.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if reqID := middleware.GetReqID(ctx); reqID != "" {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logg.Debug(ctx, "request.start")

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			logg.Info(ctx, "request.complete")
		})
	}
}
