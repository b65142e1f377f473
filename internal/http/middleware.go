package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger writes one line per request tagged with the chi request id.
// The wrapped writer still exposes Hijacker, so websocket upgrades pass.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("[%s] %s %s %d %dB %s", middleware.GetReqID(r.Context()), r.Method, r.URL.Path,
			status, ww.BytesWritten(), time.Since(start).Round(time.Microsecond))
	})
}
