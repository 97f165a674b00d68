package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestRecorder observes finished HTTP requests.
type RequestRecorder interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Observe logs every request and reports it to rec, labelled by the matched
// route pattern rather than the raw path.
func Observe(rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			elapsed := time.Since(start)

			log.Printf("[API] %s %s %d %s", r.Method, r.URL.Path, status, elapsed.Round(time.Microsecond))
			if rec != nil {
				rec.ObserveRequest(r.Method, route, status, elapsed)
			}
		})
	}
}
