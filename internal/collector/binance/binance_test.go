package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinesJSON = `[
  [1714521600000, "60000.0", "61000.0", "59000.0", "60500.0", "120.5", 1714607999999, "0", 10, "0", "0", "0"],
  [1714608000000, "60500.0", "62000.0", "60000.0", "61800.0", "98.25", 1714694399999, "0", 10, "0", "0", "0"],
  [1714694400000, "bad", "62000.0", "60000.0", "61800.0", "98.25", 1714780799999, "0", 10, "0", "0", "0"],
  [1714780800000, "61800.0", "63000.0", "61000.0", "62500.0", "80.0", 1714867199999, "0", 10, "0", "0", "0"]
]`

func newServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBinance_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Binance)(nil)
}

func TestBinance_Name(t *testing.T) {
	assert.Equal(t, "binance", New(collector.Config{}).Name())
}

func TestToPair(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"BTC", "BTCUSDT"},
		{"btc", "BTCUSDT"},
		{"BTC-USDT", "BTCUSDT"},
		{"eth/btc", "ETHBTC"},
		{"BTC-USD", "BTCUSDT"},
		{"SOL_USDC", "SOLUSDC"},
		{"BTCUSDT", "BTCUSDT"},
	}
	for _, tc := range tests {
		got, err := ToPair(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got, tc.input)
	}

	for _, bad := range []string{"", "  ", "BTC USDT", "X"} {
		_, err := ToPair(bad)
		assert.ErrorIs(t, err, core.ErrInvalidRequest, bad)
	}
}

func TestBinance_FetchHistory(t *testing.T) {
	end := time.UnixMilli(1714867199999)
	srv := newServer(t, http.StatusOK, klinesJSON, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "4h", q.Get("interval"))
		assert.Equal(t, "1714867199999", q.Get("endTime"))
		assert.Equal(t, "1000", q.Get("limit"))
		assert.Empty(t, q.Get("startTime"))
	})

	b := New(collector.Config{BaseURL: srv.URL})
	bars, err := b.FetchHistory(context.Background(), "BTC-USD", time.UnixMilli(1714608000000), end, "4h")

	require.NoError(t, err)
	require.Len(t, bars, 2, "bars before start and malformed klines are dropped")
	assert.Equal(t, 61800.0, bars[0].Close)
	assert.Equal(t, 98.25, bars[0].Volume)
	assert.Equal(t, "BTC-USD", bars[0].Symbol)
	assert.Equal(t, "4h", bars[0].Interval)
	assert.True(t, bars[1].Time.After(bars[0].Time))
}

func TestBinance_FetchHistory_UnsupportedTimeframe(t *testing.T) {
	b := New(collector.Config{BaseURL: "http://unused"})
	_, err := b.FetchHistory(context.Background(), "BTC", time.Time{}, time.Now(), "2d")
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}

func TestBinance_FetchHistory_Empty(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[]`, nil)
	b := New(collector.Config{BaseURL: srv.URL})

	_, err := b.FetchHistory(context.Background(), "BTC", time.Time{}, time.Now(), "1d")
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestBinance_FetchQuote(t *testing.T) {
	body := `{"symbol":"ETHUSDT","lastPrice":"3050.12","volume":"150000.5","closeTime":1714867199999}`
	srv := newServer(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
	})

	b := New(collector.Config{BaseURL: srv.URL})
	q, err := b.FetchQuote(context.Background(), "eth")

	require.NoError(t, err)
	assert.Equal(t, 3050.12, q.Price)
	assert.Equal(t, 150000.5, q.Volume)
	assert.Equal(t, "binance", q.Source)
}

func TestBinance_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *core.Error
	}{
		{"invalid symbol", http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`, core.ErrSymbolNotFound},
		{"other bad request", http.StatusBadRequest, `{"code":-1100,"msg":"Illegal characters"}`, core.ErrUpstreamFailure},
		{"rate limited", http.StatusTooManyRequests, `{"code":-1003,"msg":"Too many requests"}`, core.ErrUpstreamFailure},
		{"server error", http.StatusInternalServerError, ``, core.ErrUpstreamFailure},
		{"bad json", http.StatusOK, `{not json`, core.ErrUpstreamFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body, nil)
			b := New(collector.Config{BaseURL: srv.URL})

			_, err := b.FetchHistory(context.Background(), "BTC", time.Time{}, time.Now(), "1d")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBinance_ContextCancelled(t *testing.T) {
	srv := newServer(t, http.StatusOK, klinesJSON, nil)
	b := New(collector.Config{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.FetchQuote(ctx, "BTC")
	assert.ErrorIs(t, err, core.ErrUpstreamTimeout)
}
