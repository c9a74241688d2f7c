// internal/api/handler/api/generate.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/position"
)

// maxBatchSymbols bounds one batch request.
const maxBatchSymbols = 100

// SignalGenerator is the slice of the engine the handlers need.
type SignalGenerator interface {
	GenerateSignal(ctx context.Context, symbol, timeframe string, pos *core.PositionContext) (*core.SignalResult, error)
	GenerateBatchSignals(ctx context.Context, symbols []string, timeframe string, positions map[string]core.PositionContext) map[string]core.SignalResult
	DefaultTimeframe() string
}

// GenerateHandler produces fresh signals on request.
type GenerateHandler struct {
	engine SignalGenerator
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(engine SignalGenerator) *GenerateHandler {
	return &GenerateHandler{engine: engine}
}

// GenerateRequest is the body of POST /api/v1/signals/generate. Position and
// Holdings are alternatives; Holdings wins when both are set.
type GenerateRequest struct {
	Symbol    string                `json:"symbol"`
	Timeframe string                `json:"timeframe,omitempty"`
	Position  *core.PositionContext `json:"position,omitempty"`
	Holdings  []position.Holding    `json:"holdings,omitempty"`
}

// BatchRequest is the body of POST /api/v1/signals/batch.
type BatchRequest struct {
	Symbols   []string           `json:"symbols"`
	Timeframe string             `json:"timeframe,omitempty"`
	Holdings  []position.Holding `json:"holdings,omitempty"`
}

// BatchResponse reports which requested symbols produced a signal.
type BatchResponse struct {
	Timeframe string                       `json:"timeframe"`
	Results   map[string]core.SignalResult `json:"results"`
	Requested int                          `json:"requested"`
	Generated int                          `json:"generated"`
	Missing   []string                     `json:"missing"`
}

// Get generates a signal for the {symbol} path segment. Optional query
// parameters: timeframe, quantity, avg_price.
func (h *GenerateHandler) Get(w http.ResponseWriter, r *http.Request, symbol string) {
	q := r.URL.Query()

	var pos *core.PositionContext
	if qty := q.Get("quantity"); qty != "" {
		quantity, err := strconv.ParseFloat(qty, 64)
		if err != nil {
			response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidPosition, err))
			return
		}
		avg, err := strconv.ParseFloat(q.Get("avg_price"), 64)
		if err != nil && quantity > 0 {
			response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidPosition, err))
			return
		}
		pos = &core.PositionContext{HasPosition: quantity > 0, Quantity: quantity, AveragePrice: avg}
	}

	h.generate(w, r, symbol, q.Get("timeframe"), pos)
}

// Generate handles POST /api/v1/signals/generate.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidRequest, err))
		return
	}

	pos := req.Position
	if len(req.Holdings) > 0 {
		resolved, err := position.Resolve(req.Symbol, req.Holdings, 0)
		if err != nil {
			response.Fail(w, err)
			return
		}
		// the engine marks the position at the entry price
		resolved.CurrentPnLPercent = 0
		pos = &resolved
	}

	h.generate(w, r, req.Symbol, req.Timeframe, pos)
}

func (h *GenerateHandler) generate(w http.ResponseWriter, r *http.Request, symbol, timeframe string, pos *core.PositionContext) {
	if strings.TrimSpace(symbol) == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidRequest, errors.New("symbol is required")))
		return
	}

	result, err := h.engine.GenerateSignal(r.Context(), symbol, timeframe, pos)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if result == nil {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("not enough history for %s", strings.ToUpper(strings.TrimSpace(symbol)))))
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Batch handles POST /api/v1/signals/batch. Symbols that fail are listed in
// Missing rather than failing the request.
func (h *GenerateHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidRequest, err))
		return
	}
	if len(req.Symbols) > maxBatchSymbols {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidRequest,
			fmt.Errorf("at most %d symbols per batch, got %d", maxBatchSymbols, len(req.Symbols))))
		return
	}

	positions, err := position.NewBook(req.Holdings...).Contexts()
	if err != nil {
		response.Fail(w, err)
		return
	}

	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = h.engine.DefaultTimeframe()
	}

	results := h.engine.GenerateBatchSignals(r.Context(), req.Symbols, timeframe, positions)

	resp := BatchResponse{
		Timeframe: timeframe,
		Results:   results,
		Missing:   []string{},
	}
	seen := make(map[string]struct{}, len(req.Symbols))
	for _, s := range req.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := results[s]; !ok {
			resp.Missing = append(resp.Missing, s)
		}
	}
	resp.Requested = len(seen)
	resp.Generated = len(results)

	response.JSON(w, http.StatusOK, resp)
}
