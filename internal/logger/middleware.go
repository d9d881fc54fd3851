package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger returns a chi middleware that logs one line per request.
// Structured attributes are used when log is backed by slog.
func RequestLogger(log Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			dur := time.Since(start)

			if sl, ok := log.(*SlogLogger); ok {
				sl.Info("request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int64("duration_ms", dur.Milliseconds()),
					slog.Int("size", ww.BytesWritten()),
				)
				return
			}
			log.Infof("request %s %s status=%d duration_ms=%d size=%d", r.Method, r.URL.Path, status, dur.Milliseconds(), ww.BytesWritten())
		})
	}
}
