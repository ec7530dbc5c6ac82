package shield

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/docqa/kit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestHeadToGet(t *testing.T) {
	var seen string
	h := HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Method
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("HEAD", "/api/health", nil))
	if seen != http.MethodGet {
		t.Fatalf("method = %q, want GET", seen)
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(DefaultHeaders())(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestSecurityHeaders_EmptySkipped(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(HeaderConfig{XFrameOptions: "SAMEORIGIN"})(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Header().Get("Content-Security-Policy") != "" {
		t.Fatal("empty CSP should not be set")
	}
	if w.Header().Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Fatal("X-Frame-Options not applied")
	}
}

func TestTraceID(t *testing.T) {
	// WHAT: the trace id reaches the header, kit and the request logger.
	// WHY: ratings record the client IP from kit; logs correlate by trace_id.
	var reqID, remote string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = kit.GetRequestID(r.Context())
		remote = kit.GetRemoteAddr(r.Context())
		if r.Context().Value(LoggerKey) == nil {
			t.Error("logger missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.RemoteAddr = "198.51.100.4:51234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d", w.Code)
	}
	if len(reqID) != 16 || w.Header().Get("X-Trace-ID") != reqID {
		t.Fatalf("request id %q, header %q", reqID, w.Header().Get("X-Trace-ID"))
	}
	if remote != "198.51.100.4" {
		t.Fatalf("remote = %q", remote)
	}
}

func TestGetLogger_Default(t *testing.T) {
	if GetLogger(httptest.NewRequest("GET", "/", nil).Context()) == nil {
		t.Fatal("GetLogger returned nil")
	}
}

func TestMaxBody(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MaxBody(16)(readAll)

	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"small json", "application/json", `{"a":1}`, http.StatusOK},
		{"large json", "application/json", strings.Repeat("x", 64), http.StatusRequestEntityTooLarge},
		{"large multipart capped too", "multipart/form-data; boundary=x", strings.Repeat("x", 64), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestDefaultStack(t *testing.T) {
	if got := len(DefaultStack()); got != 3 {
		t.Fatalf("stack length = %d, want 3", got)
	}
}
