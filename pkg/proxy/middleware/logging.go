package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// statusRecorder remembers what a handler wrote so the access log can
// describe it after the fact. It stays a Flusher so SSE events are not held
// back.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	bytes   int
	flushes int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status != 0 {
		return
	}
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	f, ok := sr.ResponseWriter.(http.Flusher)
	if !ok {
		return
	}
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	sr.flushes++
	f.Flush()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// streaming reports whether the handler answered with an event stream.
func (sr *statusRecorder) streaming() bool {
	return strings.HasPrefix(sr.Header().Get("Content-Type"), "text/event-stream")
}

// LoggingMiddleware writes one access log line per request once the handler
// returns. 5xx responses log at error and 4xx at warn. Probe paths (/health,
// /ready) log at debug so orchestrator polling does not drown real traffic.
// Streamed answers also carry the number of flushes, one per event batch.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(sr, r)

			status := sr.status
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", sr.bytes,
				"remote_addr", r.RemoteAddr,
			}
			if sr.streaming() {
				attrs = append(attrs, "stream", true, "flushes", sr.flushes)
			}

			logger.Log(r.Context(), accessLevel(r.URL.Path, status), "request", attrs...)
		})
	}
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case path == "/health" || path == "/ready" || strings.HasPrefix(path, "/health/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
