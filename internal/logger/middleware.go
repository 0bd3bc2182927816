package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger returns a chi-compatible middleware that logs each request
// with method, path, status, duration and response size.
func RequestLogger(log Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrap := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrap, r)

			status := wrap.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Infof("%s %s status=%d duration_ms=%d size=%d request_id=%s",
				r.Method, r.URL.Path, status, time.Since(start).Milliseconds(), wrap.BytesWritten(),
				middleware.GetReqID(r.Context()))
		})
	}
}
