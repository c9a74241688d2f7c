package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/core"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultTimeout = 10 * time.Second
	defaultQuote   = "USDT"

	// maxKlines is the largest page the klines endpoint serves.
	maxKlines = 1000

	// errInvalidSymbol is Binance's error code for an unknown trading pair.
	errInvalidSymbol = -1121
)

// quoteCurrencies are checked in order when detecting a pair's quote leg.
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "FDUSD", "BTC", "ETH", "BNB"}

var validPair = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// intervals lists the timeframes the klines endpoint serves natively.
var intervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "12h": true,
	"1d": true, "3d": true, "1w": true,
}

// Binance implements the collector for Binance spot market data.
type Binance struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// New creates a new Binance collector from cfg. Zero values take defaults.
func New(cfg collector.Config) *Binance {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	b := &Binance{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// ToPair converts BTC, btc-usdt, BTC/USDT or BTC-USD to a Binance pair such as
// BTCUSDT. A bare base asset or a USD quote is paired with USDT.
func ToPair(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if s == "" {
		return "", core.WrapError(core.ErrInvalidRequest, fmt.Errorf("symbol cannot be empty"))
	}
	if !validPair.MatchString(s) {
		return "", core.WrapError(core.ErrInvalidRequest, fmt.Errorf("invalid symbol format: %s", symbol))
	}

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s, nil
		}
	}
	if base, ok := strings.CutSuffix(s, "USD"); ok && base != "" {
		return base + defaultQuote, nil
	}
	return s + defaultQuote, nil
}

// FetchQuote fetches the latest trade price and 24h volume.
func (b *Binance) FetchQuote(ctx context.Context, symbol string) (*collector.Quote, error) {
	pair, err := ToPair(symbol)
	if err != nil {
		return nil, err
	}

	var t ticker24hr
	if err := b.get(ctx, "/api/v3/ticker/24hr", url.Values{"symbol": {pair}}, symbol, &t); err != nil {
		return nil, err
	}

	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return nil, core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("parsing last price %q: %w", t.LastPrice, err))
	}
	volume, _ := strconv.ParseFloat(t.Volume, 64)

	return &collector.Quote{
		Symbol: symbol,
		Price:  price,
		Volume: volume,
		Time:   time.UnixMilli(t.CloseTime).UTC(),
		Source: "binance",
	}, nil
}

// FetchHistory fetches the most recent bars up to end, keeping those at or
// after start. At most one page of klines is requested.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]core.OHLCV, error) {
	pair, err := ToPair(symbol)
	if err != nil {
		return nil, err
	}
	interval := strings.ToLower(timeframe)
	if !intervals[interval] {
		return nil, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("unsupported timeframe: %s", timeframe))
	}

	params := url.Values{
		"symbol":   {pair},
		"interval": {interval},
		"endTime":  {strconv.FormatInt(end.UnixMilli(), 10)},
		"limit":    {strconv.Itoa(maxKlines)},
	}

	var klines [][]any
	if err := b.get(ctx, "/api/v3/klines", params, symbol, &klines); err != nil {
		return nil, err
	}

	data := make([]core.OHLCV, 0, len(klines))
	for _, k := range klines {
		bar, ok := parseKline(k)
		if !ok || bar.Time.Before(start) {
			continue
		}
		bar.Symbol = symbol
		bar.Interval = timeframe
		data = append(data, bar)
	}
	if len(data) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no klines for symbol: %s", symbol))
	}
	return data, nil
}

func (b *Binance) get(ctx context.Context, path string, params url.Values, symbol string, out any) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return core.WrapError(core.ErrUpstreamTimeout, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return core.WrapError(core.ErrUpstreamTimeout, err)
		}
		return core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("fetching %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusBadRequest && apiErr.Code == errInvalidSymbol {
			return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("symbol %s", symbol))
		}
		return core.WrapError(core.ErrUpstreamFailure,
			fmt.Errorf("unexpected status: %d %s", resp.StatusCode, apiErr.Msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...].
func parseKline(k []any) (core.OHLCV, bool) {
	if len(k) < 6 {
		return core.OHLCV{}, false
	}
	openTime, ok := k[0].(float64)
	if !ok {
		return core.OHLCV{}, false
	}

	var vals [5]float64
	for i := range vals {
		s, ok := k[i+1].(string)
		if !ok {
			return core.OHLCV{}, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.OHLCV{}, false
		}
		vals[i] = v
	}

	return core.OHLCV{
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
		Time:   time.UnixMilli(int64(openTime)).UTC(),
	}, true
}

// Binance API response types
type ticker24hr struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"volume"`
	CloseTime int64  `json:"closeTime"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
