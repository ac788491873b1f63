// Package yahoo is a candle and symbol-search client for the Yahoo Finance
// chart API.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/market"
)

const (
	// ChartURL serves candle history.
	ChartURL = "https://query1.finance.yahoo.com"
	// SearchURL serves symbol lookups.
	SearchURL = "https://query2.finance.yahoo.com"

	userAgent = "Mozilla/5.0"
)

// Options configures a Client. Zero values take the defaults noted.
type Options struct {
	ChartURL   string        // default ChartURL
	SearchURL  string        // default SearchURL
	RateLimit  float64       // requests per second, default 2
	Burst      int           // default 1
	Timeout    time.Duration // per request, default 30s
	MaxRetries int           // attempts per call, default 3
	Backoff    time.Duration // first retry delay, doubled each attempt, default 1s
}

// Client fetches candles and search results. It is safe for concurrent use;
// all requests share one rate limiter.
type Client struct {
	chart   *resty.Client
	search  *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	maxRetries int
	backoff    time.Duration
}

var _ feed.CandleProvider = (*Client)(nil)

// NewClient creates a Yahoo client. A nil logger disables logging.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.ChartURL == "" {
		opts.ChartURL = ChartURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = SearchURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	newResty := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", userAgent)
	}

	return &Client{
		chart:      newResty(opts.ChartURL),
		search:     newResty(opts.SearchURL),
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		logger:     logger,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}
}

func (c *Client) Name() string {
	return "yahoo"
}

// chartResponse represents the chart API response
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Candles fetches the candle history for q. Without a From/To window the
// whole available range is requested: 60 days for intraday intervals, all
// of it otherwise. Rows with a missing price are skipped.
func (c *Client) Candles(ctx context.Context, q feed.Query) ([]market.Candle, error) {
	if q.Symbol == "" {
		return nil, &feed.ProviderError{Provider: c.Name(), Err: errors.New("missing symbol")}
	}
	if err := market.ValidateInterval(q.Interval); err != nil {
		return nil, &feed.ProviderError{Provider: c.Name(), Err: err}
	}

	params := map[string]string{
		"interval":       q.Interval,
		"includePrePost": "false",
	}
	if q.From.IsZero() && q.To.IsZero() {
		params["range"] = market.HistoryRange(q.Interval)
	} else {
		from, to := q.From, q.To
		if to.IsZero() {
			to = time.Now()
		}
		params["period1"] = strconv.FormatInt(from.Unix(), 10)
		params["period2"] = strconv.FormatInt(to.Unix(), 10)
	}

	var out chartResponse
	resp, err := c.do(ctx, "/v8/finance/chart/{symbol}", func() *resty.Request {
		out = chartResponse{}
		return c.chart.R().
			SetPathParam("symbol", q.Symbol).
			SetQueryParams(params).
			SetResult(&out).
			SetError(&out)
	})
	if err != nil {
		if resp != nil && resp.StatusCode() == http.StatusNotFound {
			return nil, &feed.ProviderError{Provider: c.Name(), Err: fmt.Errorf("%w for symbol %q interval %q", feed.ErrNoCandles, q.Symbol, q.Interval)}
		}
		return nil, err
	}

	if out.Chart.Error != nil {
		return nil, &feed.ProviderError{Provider: c.Name(), Err: errors.New(out.Chart.Error.Description)}
	}
	if len(out.Chart.Result) == 0 || len(out.Chart.Result[0].Timestamp) == 0 || len(out.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &feed.ProviderError{Provider: c.Name(), Err: fmt.Errorf("%w for symbol %q interval %q", feed.ErrNoCandles, q.Symbol, q.Interval)}
	}

	result := out.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]market.Candle, 0, len(result.Timestamp))
	skipped := 0
	for i, ts := range result.Timestamp {
		o, h, l, cl := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || cl == nil {
			skipped++
			continue
		}
		var vol float64
		if v := at(quote.Volume, i); v != nil {
			vol = *v
		}
		candles = append(candles, market.Candle{
			Time:   ts,
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *cl,
			Volume: vol,
		})
	}

	candles, dups := dedupe(candles)
	if err := market.ValidateCandles(candles); err != nil {
		return nil, &feed.ProviderError{Provider: c.Name(), Err: err}
	}

	c.logger.Debug("fetched candles",
		zap.String("symbol", q.Symbol),
		zap.String("interval", q.Interval),
		zap.Int("candles", len(candles)),
		zap.Int("skipped", skipped),
		zap.Int("duplicates", dups),
	)
	return candles, nil
}

// dedupe sorts candles by time and keeps the last row for a repeated
// timestamp. Yahoo repeats the live bar at the end of a series.
func dedupe(candles []market.Candle) ([]market.Candle, int) {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })
	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].Time == c.Time {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out, len(candles) - len(out)
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

// do executes a GET with rate limiting and retries. 429, 418 and 5xx
// responses and transport errors are retried with exponential backoff,
// honouring Retry-After when the server sends one. newReq builds a fresh
// request for every attempt.
func (c *Client) do(ctx context.Context, path string, newReq func() *resty.Request) (*resty.Response, error) {
	var (
		resp *resty.Response
		err  error
	)

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("executing request", zap.String("path", path), zap.Int("attempt", i+1))
		resp, err = newReq().SetContext(ctx).Get(path)
		if err == nil && !resp.IsError() {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		retry := false
		var retryAfter time.Duration
		if err == nil {
			status := resp.StatusCode()
			switch {
			case status == http.StatusTooManyRequests || status == http.StatusTeapot:
				retry = true
				if secs, perr := strconv.Atoi(resp.Header().Get("Retry-After")); perr == nil {
					retryAfter = time.Duration(secs) * time.Second
				}
			case status >= 500:
				retry = true
			}
			if !retry {
				return resp, &feed.ProviderError{
					Provider: c.Name(),
					Err:      fmt.Errorf("request failed with status %s", resp.Status()),
				}
			}
		} else {
			retry = true
		}

		if retryAfter == 0 {
			retryAfter = c.backoff * time.Duration(math.Pow(2, float64(i)))
		}
		c.logger.Warn("request failed, retrying",
			zap.String("path", path),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil {
		err = fmt.Errorf("status %s", resp.Status())
	}
	return resp, &feed.ProviderError{
		Provider:  c.Name(),
		Err:       fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, err),
		Retryable: true,
	}
}
