package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/core"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultTimeout = 10 * time.Second
	userAgent      = "Mozilla/5.0 (compatible; sigma/1.0)"
)

// validSymbol matches stock symbols like AAPL, MSFT, 600519.SH, 0700.HK, BTC-USD
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^=]{1,10}([.-][A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("symbol cannot be empty"))
	}
	if len(symbol) > 20 {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("symbol too long: %s", symbol))
	}
	if !validSymbol.MatchString(symbol) {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// New creates a new Yahoo collector from cfg. Zero values take defaults.
func New(cfg collector.Config) *Yahoo {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	y := &Yahoo{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		y.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchQuote fetches the latest quote
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*collector.Quote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/%s?interval=1d&range=1d", y.baseURL, y.toYahooSymbol(symbol))

	r, err := y.fetchChart(ctx, symbol, url)
	if err != nil {
		return nil, err
	}

	meta := r.Meta
	return &collector.Quote{
		Symbol: symbol,
		Price:  meta.RegularMarketPrice,
		Volume: meta.RegularMarketVolume,
		Time:   time.Unix(meta.RegularMarketTime, 0).UTC(),
		Source: "yahoo",
	}, nil
}

// FetchHistory fetches OHLCV bars. Timeframes Yahoo does not serve natively
// (3m, 2h, 4h, 6h, 12h, 3d) are resampled from a finer interval.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	plan, ok := planInterval(timeframe)
	if !ok {
		return nil, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("unsupported timeframe: %s", timeframe))
	}

	url := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		y.baseURL, y.toYahooSymbol(symbol), plan.interval, start.Unix(), end.Unix())

	r, err := y.fetchChart(ctx, symbol, url)
	if err != nil {
		return nil, err
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no quotes for symbol: %s", symbol))
	}

	quotes := r.Indicators.Quote[0]
	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if !quotes.complete(i) {
			continue // Skip missing data
		}
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: timeframe,
			Open:     *quotes.Open[i],
			High:     *quotes.High[i],
			Low:      *quotes.Low[i],
			Close:    *quotes.Close[i],
			Volume:   *quotes.Volume[i],
			Time:     time.Unix(ts, 0).UTC(),
		})
	}

	return resample(data, plan.group), nil
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol, url string) (*chartResult, error) {
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, core.WrapError(core.ErrUpstreamTimeout, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.WrapError(core.ErrUpstreamTimeout, err)
		}
		return nil, core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("fetching chart: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("symbol %s", symbol))
	case resp.StatusCode != http.StatusOK:
		return nil, core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("decoding response: %w", err))
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrUpstreamFailure, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}
	return &result.Chart.Result[0], nil
}

// intervalPlan is the native Yahoo interval to request and how many native
// bars make up one bar of the requested timeframe.
type intervalPlan struct {
	interval string
	group    int
}

func planInterval(timeframe string) (intervalPlan, bool) {
	switch strings.ToLower(timeframe) {
	case "1m":
		return intervalPlan{"1m", 1}, true
	case "3m":
		return intervalPlan{"1m", 3}, true
	case "5m":
		return intervalPlan{"5m", 1}, true
	case "15m":
		return intervalPlan{"15m", 1}, true
	case "30m":
		return intervalPlan{"30m", 1}, true
	case "1h":
		return intervalPlan{"60m", 1}, true
	case "2h":
		return intervalPlan{"60m", 2}, true
	case "4h":
		return intervalPlan{"60m", 4}, true
	case "6h":
		return intervalPlan{"60m", 6}, true
	case "12h":
		return intervalPlan{"60m", 12}, true
	case "1d":
		return intervalPlan{"1d", 1}, true
	case "3d":
		return intervalPlan{"1d", 3}, true
	case "1w":
		return intervalPlan{"1wk", 1}, true
	default:
		return intervalPlan{}, false
	}
}

// resample merges consecutive groups of n bars. A trailing partial group is
// kept so the latest close is never dropped.
func resample(bars []core.OHLCV, n int) []core.OHLCV {
	if n <= 1 || len(bars) == 0 {
		return bars
	}

	out := make([]core.OHLCV, 0, (len(bars)+n-1)/n)
	for i := 0; i < len(bars); i += n {
		end := min(i+n, len(bars))
		group := bars[i:end]

		b := group[0]
		for _, g := range group[1:] {
			b.High = max(b.High, g.High)
			b.Low = min(b.Low, g.Low)
			b.Volume += g.Volume
		}
		b.Close = group[len(group)-1].Close
		out = append(out, b)
	}
	return out
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume float64 `json:"regularMarketVolume"`
	RegularMarketTime   int64   `json:"regularMarketTime"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func (q quoteIndicator) complete(i int) bool {
	for _, series := range [][]*float64{q.Open, q.High, q.Low, q.Close, q.Volume} {
		if i >= len(series) || series[i] == nil {
			return false
		}
	}
	return true
}
