package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const internalKeyHeader = "X-Internal-Service-Key"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// observe logs every request and counts it by route template.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.Request(route, rec.status)
		h.log.Debug(r.Context(), "http request",
			"request_id", reqID,
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// requireInternalKey admits only callers presenting the shared service key.
func (h *Handler) requireInternalKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.InternalServiceKey == "" {
			writeError(w, http.StatusForbidden, "Forbidden", "Internal API is disabled")
			return
		}
		got := r.Header.Get(internalKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.InternalServiceKey)) != 1 {
			h.log.Warn(r.Context(), "internal key rejected", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid service key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
