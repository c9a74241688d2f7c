package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
	"github.com/stretchr/testify/require"
)

// fakeEngine answers HOLD for every symbol except those in errs or short.
type fakeEngine struct {
	mu        sync.Mutex
	errs      map[string]error
	short     map[string]bool
	lastPos   *core.PositionContext
	lastTF    string
	positions map[string]core.PositionContext
}

func (f *fakeEngine) GenerateSignal(_ context.Context, symbol, timeframe string, pos *core.PositionContext) (*core.SignalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if timeframe == "" {
		timeframe = f.DefaultTimeframe()
	}
	f.lastPos = pos
	f.lastTF = timeframe
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	if f.short[symbol] {
		return nil, nil
	}
	r := core.SignalResult{
		Symbol:      symbol,
		Signal:      core.SignalHold,
		Confidence:  50,
		EntryPrice:  100,
		Timeframe:   timeframe,
		GeneratedAt: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
		ValidUntil:  time.Now().Add(time.Hour),
		Reasoning:   []string{"Mixed signals - no clear direction"},
	}
	if pos != nil && pos.HasPosition {
		r.Signal = core.SignalSell
	}
	return &r, nil
}

func (f *fakeEngine) GenerateBatchSignals(ctx context.Context, symbols []string, timeframe string, positions map[string]core.PositionContext) map[string]core.SignalResult {
	f.mu.Lock()
	f.positions = positions
	f.mu.Unlock()

	out := make(map[string]core.SignalResult)
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		var pos *core.PositionContext
		if pc, ok := positions[s]; ok {
			pos = &pc
		}
		r, err := f.GenerateSignal(ctx, s, timeframe, pos)
		if err != nil || r == nil {
			continue
		}
		out[s] = *r
	}
	return out
}

func (f *fakeEngine) DefaultTimeframe() string { return "1d" }

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorDetail {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}
