package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/hideout-backend/pkg/ctxutil"
)

// quietPaths are health endpoints logged at debug level only.
var quietPaths = map[string]bool{"/live": true, "/ready": true, "/metrics": true}

// Logger logs one line per request once the handler returns. Server errors
// are logged at error level, client errors at warn. An SSE stream is logged
// when it ends, so its duration is the length of the subscription.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &loggingWriter{ResponseWriter: w}

			next.ServeHTTP(lw, r)

			ctx := r.Context()
			attrs := make([]slog.Attr, 0, 9)
			attrs = append(attrs,
				slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", lw.Status()),
				slog.Int64("bytes", lw.bytes),
				slog.Duration("duration", time.Since(start)),
			)
			if id, ok := ctxutil.UserIDFromCtx(ctx); ok {
				attrs = append(attrs, slog.String("user_id", id.String()))
			}
			if role := ctxutil.RoleFromCtx(ctx); role != "" {
				attrs = append(attrs, slog.String("role", role))
			}
			if lw.flushed {
				attrs = append(attrs, slog.Bool("streamed", true))
			}

			logger.LogAttrs(ctx, requestLevel(r.URL.Path, lw.Status()), "request", attrs...)
		})
	}
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case quietPaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// loggingWriter records what the handler sent.
type loggingWriter struct {
	http.ResponseWriter
	status  int
	bytes   int64
	flushed bool
}

// Status is 200 when the handler wrote a body without calling WriteHeader.
func (w *loggingWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *loggingWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *loggingWriter) Flush() {
	w.flushed = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *loggingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
