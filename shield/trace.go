package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hazyhaar/docqa/kit"
)

// TraceID tags each request with a random id. The id goes into the
// X-Trace-ID response header and kit's request id; the client address goes
// into kit's remote address; a logger carrying both is stored under
// LoggerKey. Completion is logged with status and elapsed_ms.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := make([]byte, 8)
		rand.Read(id)
		traceID := hex.EncodeToString(id)
		remote := clientIP(r)

		ctx := kit.WithRequestID(r.Context(), traceID)
		ctx = kit.WithRemoteAddr(ctx, remote)
		w.Header().Set("X-Trace-ID", traceID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", remote,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))
		logger.Info("http.request", "status", sw.status, "elapsed_ms", time.Since(start).Milliseconds())
	})
}

// clientIP is the host part of RemoteAddr. Forwarding headers are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working behind the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
