// Package cache stores computed signals under a (symbol, timeframe) key with
// a time-to-live.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sigma/internal/core"
)

// DefaultTTL is used when a non-positive TTL is passed to Set.
const DefaultTTL = 5 * time.Minute

// Cache is a keyed store of signal results. Get returns core.ErrCacheMiss
// when the key is absent or expired. Stored results are never modified
// through the values passed to Set or returned by Get.
type Cache interface {
	Get(ctx context.Context, key string) (*core.SignalResult, error)
	Set(ctx context.Context, key string, result *core.SignalResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key builds the cache key of a signal request. Requests carrying a position
// get their own key so results never leak between holders.
func Key(symbol, timeframe string, pos *core.PositionContext) string {
	key := fmt.Sprintf("signal:%s:%s", strings.ToUpper(symbol), timeframe)
	if pos == nil || !pos.HasPosition {
		return key
	}
	return key + ":pos:" + formatFloat(pos.Quantity) + "@" + formatFloat(pos.AveragePrice)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
