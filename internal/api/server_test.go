// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/sigma/internal/app"
	"github.com/newthinker/sigma/internal/config"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/storage/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEngine struct{}

func (stubEngine) GenerateSignal(_ context.Context, symbol, timeframe string, _ *core.PositionContext) (*core.SignalResult, error) {
	if symbol == "IPO" {
		return nil, nil
	}
	return &core.SignalResult{Symbol: symbol, Signal: core.SignalBuy, Timeframe: timeframe}, nil
}

func (e stubEngine) GenerateBatchSignals(ctx context.Context, symbols []string, timeframe string, _ map[string]core.PositionContext) map[string]core.SignalResult {
	out := make(map[string]core.SignalResult)
	for _, s := range symbols {
		if r, _ := e.GenerateSignal(ctx, s, timeframe, nil); r != nil {
			out[s] = *r
		}
	}
	return out
}

func (stubEngine) DefaultTimeframe() string { return "1d" }

func newTestServer(t *testing.T, apiKey string, reg *metrics.Registry) *Server {
	t.Helper()
	a := app.New(config.Defaults(), stubEngine{}, nil, zap.NewNop())
	a.SetWatchlist([]string{"AAPL"})

	srv, err := NewServer(Config{
		Host:   "localhost",
		Port:   0,
		APIKey: apiKey,
	}, Dependencies{
		Engine:      stubEngine{},
		App:         a,
		SignalStore: signal.NewMemoryStore(100),
		Metrics:     reg,
	}, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, path, body, apiKey string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, nil)
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, "test-key", nil)

	w := do(srv, "GET", "/api/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_APIAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		provided   string
		want       int
	}{
		{"missing key", "test-key", "", http.StatusUnauthorized},
		{"wrong key", "test-key", "nope", http.StatusUnauthorized},
		{"valid key", "test-key", "test-key", http.StatusOK},
		{"auth disabled", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.configured, nil)
			w := do(srv, "GET", "/api/v1/signals", "", tt.provided)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, "", nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{"GET", "/api/v1/signals", "", http.StatusOK},
		{"GET", "/api/v1/signals/history/missing", "", http.StatusNotFound},
		{"GET", "/api/v1/signals/AAPL?timeframe=1h", "", http.StatusOK},
		{"GET", "/api/v1/signals/IPO", "", http.StatusNotFound},
		{"POST", "/api/v1/signals/generate", `{"symbol":"AAPL"}`, http.StatusOK},
		{"POST", "/api/v1/signals/batch", `{"symbols":["AAPL","MSFT"]}`, http.StatusOK},
		{"GET", "/api/v1/watchlist", "", http.StatusOK},
		{"POST", "/api/v1/watchlist", `{"symbol":"MSFT"}`, http.StatusCreated},
		{"DELETE", "/api/v1/watchlist/AAPL", "", http.StatusOK},
		{"GET", "/api/v1/watchlist/signals", "", http.StatusOK},
		{"DELETE", "/api/v1/signals/AAPL", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(srv, tt.method, tt.path, tt.body, "")
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_GenerateBySymbol(t *testing.T) {
	srv := newTestServer(t, "", nil)

	w := do(srv, "GET", "/api/v1/signals/TSLA?timeframe=4h", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data core.SignalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "TSLA", env.Data.Symbol)
	assert.Equal(t, "4h", env.Data.Timeframe)
}

func TestServer_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := newTestServer(t, "secret", reg)

	do(srv, "GET", "/api/v1/signals/AAPL", "", "secret")
	w := do(srv, "GET", "/metrics", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), `path="/api/v1/signals/{symbol}"`)
}
