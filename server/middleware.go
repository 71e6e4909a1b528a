package server

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request, at warn for 4xx and error
// for 5xx responses.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			const format = "%s %s status=%d duration_ms=%d bytes=%d request_id=%s"
			args := []interface{}{
				r.Method, r.URL.Path, status,
				time.Since(start).Milliseconds(), ww.BytesWritten(),
				chimw.GetReqID(r.Context()),
			}

			switch {
			case status >= 500:
				s.logger.Error(format, args...)
			case status >= 400:
				s.logger.Warn(format, args...)
			default:
				s.logger.Debug(format, args...)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}
