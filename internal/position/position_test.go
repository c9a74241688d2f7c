package position

import (
	"errors"
	"testing"

	"github.com/newthinker/sigma/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		pc      core.PositionContext
		wantErr bool
	}{
		{"no position", core.PositionContext{}, false},
		{"valid position", core.PositionContext{HasPosition: true, Quantity: 10, AveragePrice: 100}, false},
		{"negative quantity", core.PositionContext{HasPosition: true, Quantity: -1, AveragePrice: 100}, true},
		{"zero average price", core.PositionContext{HasPosition: true, Quantity: 1, AveragePrice: 0}, true},
		{"negative quantity without position", core.PositionContext{Quantity: -5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pc)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrInvalidPosition))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPnLPercent(t *testing.T) {
	assert.InDelta(t, 60.0, PnLPercent(100, 160), 1e-9)
	assert.InDelta(t, -25.0, PnLPercent(100, 75), 1e-9)
	assert.Zero(t, PnLPercent(0, 75))
}

func TestResolve_AggregatesLots(t *testing.T) {
	holdings := []Holding{
		{Symbol: "AAPL", Quantity: 10, AveragePrice: 100},
		{Symbol: "aapl", Quantity: 30, AveragePrice: 200},
		{Symbol: "MSFT", Quantity: 5, AveragePrice: 300},
	}

	pc, err := Resolve("AAPL", holdings, 263)
	require.NoError(t, err)

	assert.True(t, pc.HasPosition)
	assert.Equal(t, 40.0, pc.Quantity)
	assert.InDelta(t, 175.0, pc.AveragePrice, 1e-9)
	assert.InDelta(t, 50.285714, pc.CurrentPnLPercent, 1e-5)
}

func TestResolve_NotHeld(t *testing.T) {
	pc, err := Resolve("TSLA", []Holding{{Symbol: "AAPL", Quantity: 1, AveragePrice: 1}}, 100)
	require.NoError(t, err)
	assert.False(t, pc.HasPosition)
}

func TestResolve_MalformedHolding(t *testing.T) {
	_, err := Resolve("AAPL", []Holding{{Symbol: "AAPL", Quantity: 5, AveragePrice: 0}}, 100)
	assert.True(t, errors.Is(err, core.ErrInvalidPosition))
}

func TestWithPrice(t *testing.T) {
	none := WithPrice(core.PositionContext{}, 100)
	assert.Zero(t, none.CurrentPnLPercent)

	held := WithPrice(core.PositionContext{HasPosition: true, Quantity: 1, AveragePrice: 50}, 80)
	assert.InDelta(t, 60.0, held.CurrentPnLPercent, 1e-9)
}

func TestBook(t *testing.T) {
	b := NewBook(
		Holding{Symbol: "AAPL", Quantity: 10, AveragePrice: 150},
		Holding{Symbol: "BTC-USD", Quantity: 0.5, AveragePrice: 40000},
	)
	b.Add(Holding{Symbol: "aapl", Quantity: 10, AveragePrice: 250})

	assert.Len(t, b.Holdings("AAPL"), 2)

	ctxs, err := b.Contexts()
	require.NoError(t, err)
	require.Contains(t, ctxs, "AAPL")
	assert.InDelta(t, 200.0, ctxs["AAPL"].AveragePrice, 1e-9)
	assert.Contains(t, ctxs, "BTC-USD")

	b.Clear("AAPL")
	assert.Empty(t, b.Holdings("AAPL"))
}
