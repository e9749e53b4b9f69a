package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"notedraft/internal/logger"
)

// requestLogger logs one structured line per request. The chi wrap writer
// keeps http.Flusher visible to the SSE handler underneath.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
