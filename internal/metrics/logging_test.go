package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

func fieldsOf(t *testing.T, logs *observer.ObservedLogs) map[string]any {
	t.Helper()
	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	return entries[0].ContextMap()
}

func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	logger, logs := observedLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("POST", "/api/v1/signals/batch", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	fields := fieldsOf(t, logs)
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/v1/signals/batch", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "10.0.0.7:5123", fields["client_ip"])
	assert.Contains(t, fields, "duration_ms")
}

func TestLoggingMiddleware_GeneratesRequestID(t *testing.T) {
	logger, logs := observedLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, fieldsOf(t, logs)["request_id"])
}

func TestLoggingMiddleware_KeepsCallerRequestID(t *testing.T) {
	logger, logs := observedLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "trace-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "trace-42", fieldsOf(t, logs)["request_id"])
}

func TestLoggingMiddleware_LogsRoutePattern(t *testing.T) {
	logger, logs := observedLogger()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/signals/{symbol}", func(http.ResponseWriter, *http.Request) {})

	LoggingMiddleware(logger)(mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/signals/TSLA", nil))

	fields := fieldsOf(t, logs)
	assert.Equal(t, "/api/v1/signals/TSLA", fields["path"])
	assert.Equal(t, "/api/v1/signals/{symbol}", fields["route"])
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote addr", "", "192.168.1.1:12345"},
		{"single proxy", "203.0.113.9", "203.0.113.9"},
		{"proxy chain", " 203.0.113.9 , 10.0.0.1", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observedLogger()
			handler := LoggingMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

			req := httptest.NewRequest("GET", "/api/v1/watchlist", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, fieldsOf(t, logs)["client_ip"])
		})
	}
}

func TestLoggingMiddleware_NilLogger(t *testing.T) {
	handler := LoggingMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
