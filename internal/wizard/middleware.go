package wizard

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"gmbh-wizard/internal/common/logger"
)

const healthPath = "/healthz"

// AccessLog logs one line per request through the structured logger.
func AccessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			}
			if r.URL.Path == healthPath {
				log.Debug("request", fields)
				return
			}
			log.Info("request", fields)
		})
	}
}

// SecurityHeaders sets the framing, XSS and HSTS headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Strict-Transport-Security", "max-age=31536000")
		next.ServeHTTP(w, r)
	})
}

// TLSRedirect sends requests that reached the proxy over plain http to the
// https URL. A missing X-Forwarded-Proto counts as http. The health probe is
// exempt so platform checks keep working.
func TLSRedirect(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto"))
			if r.URL.Path == healthPath || (proto != "" && proto != "http") {
				next.ServeHTTP(w, r)
				return
			}
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// CacheStatic marks static assets cacheable for maxAge.
func CacheStatic(maxAge time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	seconds := int64(maxAge / time.Second)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if seconds > 0 {
				w.Header().Set("Cache-Control", "public, max-age="+strconv.FormatInt(seconds, 10))
				w.Header().Set("Expires", now().Add(maxAge).UTC().Format(http.TimeFormat))
			}
			next.ServeHTTP(w, r)
		})
	}
}
