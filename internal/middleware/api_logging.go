package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

const requestIDKey contextKey = "request_id"

// RequestLogger tags every request with an id and writes one access log line
// when it completes. Health probes and metrics scrapes are not logged.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Printf("[API] %s %s %s %d %dB %s ip=%s", id, r.Method, r.URL.Path,
			wrapped.statusCode, wrapped.bytes, time.Since(start).Round(time.Millisecond), ClientIP(r))
	})
}

// GetRequestID returns the id RequestLogger assigned, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func shouldSkipLogging(path string) bool {
	for _, skip := range []string{"/health", "/metrics", "/favicon.ico"} {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// ClientIP extracts the caller's address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
