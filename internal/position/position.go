// Package position resolves a user's holdings into the position context the
// synthesizer rebalances against.
package position

import (
	"fmt"
	"strings"
	"sync"

	"github.com/newthinker/sigma/internal/core"
)

// Holding is one lot of a symbol held by the user.
type Holding struct {
	Symbol       string  `json:"symbol" mapstructure:"symbol"`
	Quantity     float64 `json:"quantity" mapstructure:"quantity"`
	AveragePrice float64 `json:"average_price" mapstructure:"average_price"`
}

// Validate rejects malformed position contexts before they reach scoring.
func Validate(pc core.PositionContext) error {
	if pc.Quantity < 0 {
		return core.WrapError(core.ErrInvalidPosition,
			fmt.Errorf("quantity cannot be negative, got %g", pc.Quantity))
	}
	if pc.HasPosition && pc.AveragePrice <= 0 {
		return core.WrapError(core.ErrInvalidPosition,
			fmt.Errorf("average price must be positive, got %g", pc.AveragePrice))
	}
	return nil
}

// PnLPercent is the unrealized gain of averagePrice marked at currentPrice.
func PnLPercent(averagePrice, currentPrice float64) float64 {
	if averagePrice <= 0 {
		return 0
	}
	return (currentPrice - averagePrice) / averagePrice * 100
}

// WithPrice returns pc with CurrentPnLPercent marked at currentPrice.
func WithPrice(pc core.PositionContext, currentPrice float64) core.PositionContext {
	if !pc.HasPosition {
		return pc
	}
	pc.CurrentPnLPercent = PnLPercent(pc.AveragePrice, currentPrice)
	return pc
}

// Resolve aggregates every lot of symbol into one position context marked at
// currentPrice. The average price is quantity-weighted. A zero net quantity
// means no position.
func Resolve(symbol string, holdings []Holding, currentPrice float64) (core.PositionContext, error) {
	var qty, cost float64
	for _, h := range holdings {
		if !strings.EqualFold(h.Symbol, symbol) {
			continue
		}
		if h.Quantity < 0 || (h.Quantity > 0 && h.AveragePrice <= 0) {
			return core.PositionContext{}, core.WrapError(core.ErrInvalidPosition,
				fmt.Errorf("malformed holding for %s: quantity=%g average_price=%g", symbol, h.Quantity, h.AveragePrice))
		}
		qty += h.Quantity
		cost += h.Quantity * h.AveragePrice
	}

	if qty == 0 {
		return core.PositionContext{HasPosition: false}, nil
	}

	pc := core.PositionContext{
		HasPosition:  true,
		Quantity:     qty,
		AveragePrice: cost / qty,
	}
	return WithPrice(pc, currentPrice), nil
}

// Book is a concurrency-safe set of holdings keyed by symbol.
type Book struct {
	mu       sync.RWMutex
	holdings map[string][]Holding
}

// NewBook creates a book pre-loaded with holdings.
func NewBook(holdings ...Holding) *Book {
	b := &Book{holdings: make(map[string][]Holding)}
	for _, h := range holdings {
		b.Add(h)
	}
	return b
}

// Add records a lot.
func (b *Book) Add(h Holding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToUpper(h.Symbol)
	b.holdings[key] = append(b.holdings[key], h)
}

// Clear drops every lot of symbol.
func (b *Book) Clear(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.holdings, strings.ToUpper(symbol))
}

// Holdings returns a copy of the lots of symbol.
func (b *Book) Holdings(symbol string) []Holding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lots := b.holdings[strings.ToUpper(symbol)]
	out := make([]Holding, len(lots))
	copy(out, lots)
	return out
}

// Contexts returns the unmarked position context of every held symbol.
// CurrentPnLPercent is left for the engine to mark at the entry price.
func (b *Book) Contexts() (map[string]core.PositionContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]core.PositionContext, len(b.holdings))
	for symbol, lots := range b.holdings {
		pc, err := Resolve(symbol, lots, 0)
		if err != nil {
			return nil, err
		}
		if pc.HasPosition {
			pc.CurrentPnLPercent = 0
			out[symbol] = pc
		}
	}
	return out, nil
}
