package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradelog/backtest"
	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/indicators"
	"github.com/rustyeddy/tradelog/market"
	"github.com/rustyeddy/tradelog/strategies"
)

type candlesResponse struct {
	Candles []market.Candle `json:"candles"`
	Signals []market.Signal `json:"signals"`
}

// GetCandles handles GET /api/candles: the candle history of a symbol and
// the EMA crossover signals on it.
func (s *Server) GetCandles(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	symbol, interval, cross, err := s.seriesParams(c)
	if err != nil {
		s.handleError(c, err)
		return
	}

	q := feed.Query{Symbol: symbol, Interval: interval}
	candles, err := s.candles.Candles(ctx, q)
	if err == nil && len(candles) == 0 {
		err = &feed.ProviderError{Provider: s.candles.Name(), Err: feed.ErrNoCandles}
	}
	if err != nil {
		s.handleError(c, err)
		return
	}

	signals, err := cross.Signals(ctx, q, candles)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, candlesResponse{Candles: candles, Signals: signals})
}

// GetBacktest handles GET /api/backtest: a full report for the EMA
// crossover on a symbol, with optional range statistics and overlays.
func (s *Server) GetBacktest(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	symbol, interval, cross, err := s.seriesParams(c)
	if err != nil {
		s.handleError(c, err)
		return
	}
	req := backtest.Request{Symbol: symbol, Interval: interval}
	if req.From, err = s.validator.Date("from", c.Query("from"), false); err != nil {
		s.handleError(c, err)
		return
	}
	if req.To, err = s.validator.Date("to", c.Query("to"), true); err != nil {
		s.handleError(c, err)
		return
	}

	overlays, err := s.overlayParams(c, cross)
	if err != nil {
		s.handleError(c, err)
		return
	}
	matcher, err := backtest.MatcherFor(backtest.MatchPolicy(c.DefaultQuery("policy", s.defaults.Policy)))
	if err != nil {
		s.handleError(c, &ValidationError{Param: "policy", Err: err})
		return
	}
	mode, err := backtest.ParseAggregationMode(c.DefaultQuery("aggregation", s.defaults.Aggregation))
	if err != nil {
		s.handleError(c, &ValidationError{Param: "aggregation", Err: err})
		return
	}

	runner := &backtest.Runner{
		Candles:  s.candles,
		Signals:  cross,
		Matcher:  matcher,
		Overlays: overlays,
		Mode:     mode,
		Logger:   s.logger.With(zap.String("request_id", requestID(c))),
	}

	start := time.Now()
	rep, err := runner.Run(ctx, req)
	if s.metrics != nil {
		candles, trades := 0, 0
		if rep != nil {
			candles, trades = len(rep.Candles), len(rep.Trades)
		}
		s.metrics.ObserveBacktest(time.Since(start), candles, trades, err)
	}
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// SearchSymbol handles GET /api/search_symbol. An empty query returns an
// empty list.
func (s *Server) SearchSymbol(c *gin.Context) {
	if s.searcher == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "symbol search is not configured", "request_id": requestID(c)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	quotes, err := s.searcher.Search(ctx, sanitizeInput(c.Query("q")))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// HealthCheck handles GET /health requests
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"provider":  s.candles.Name(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

func (s *Server) seriesParams(c *gin.Context) (string, string, *strategies.EMACross, error) {
	symbol, err := s.validator.Symbol(c.Query("symbol"), s.defaults.Symbol)
	if err != nil {
		return "", "", nil, err
	}
	interval, err := s.validator.Interval(c.Query("interval"), s.defaults.Interval)
	if err != nil {
		return "", "", nil, err
	}
	short, err := s.validator.PositiveInt("ema_short", c.Query("ema_short"), s.defaults.Params.ShortLength)
	if err != nil {
		return "", "", nil, err
	}
	long, err := s.validator.PositiveInt("ema_long", c.Query("ema_long"), s.defaults.Params.LongLength)
	if err != nil {
		return "", "", nil, err
	}
	cross, err := strategies.NewEMACross(short, long)
	if err != nil {
		return "", "", nil, &ValidationError{Param: "ema_short/ema_long", Err: err}
	}
	return symbol, interval, cross, nil
}

// overlayParams starts from the configured overlays, draws the EMA lines
// at the crossover lengths and applies rsi, st_period and st_mult.
func (s *Server) overlayParams(c *gin.Context, cross *strategies.EMACross) (indicators.OverlaySpec, error) {
	spec := s.defaults.Overlays
	spec.FastEMA, spec.SlowEMA = cross.Short, cross.Long

	var err error
	if spec.RSIPeriod, err = s.validator.PositiveInt("rsi", c.Query("rsi"), spec.RSIPeriod); err != nil {
		return spec, err
	}
	if spec.SupertrendPeriod, err = s.validator.PositiveInt("st_period", c.Query("st_period"), spec.SupertrendPeriod); err != nil {
		return spec, err
	}
	if spec.SupertrendMultiplier, err = s.validator.PositiveFloat("st_mult", c.Query("st_mult"), spec.SupertrendMultiplier); err != nil {
		return spec, err
	}
	if spec.SupertrendPeriod > 0 && !(spec.SupertrendMultiplier > 0) {
		spec.SupertrendMultiplier = indicators.DefaultOverlaySpec().SupertrendMultiplier
	}
	return spec, nil
}

// statusFor maps an error to its HTTP status and the message shown to the
// client.
func statusFor(err error) (int, string) {
	var (
		ve  *ValidationError
		ipe *indicators.InvalidParameterError
		ire *backtest.InvalidRangeError
		pe  *feed.ProviderError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ipe), errors.As(err, &ire):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, feed.ErrNoCandles):
		return http.StatusNotFound, "No data found for this symbol and interval. For intraday intervals only the last 60 days are available."
	case errors.As(err, &pe):
		return http.StatusBadGateway, "Data provider " + pe.Provider + " failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// handleError logs the error and sends appropriate HTTP response
func (s *Server) handleError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	id := requestID(c)

	fields := []zap.Field{
		zap.String("request_id", id),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
		zap.Int("status_code", status),
	}
	if status >= 500 {
		s.logger.Error("API error", fields...)
	} else {
		s.logger.Warn("API error", fields...)
	}

	var pe *feed.ProviderError
	if s.metrics != nil && errors.As(err, &pe) {
		s.metrics.ProviderErrors.WithLabelValues(pe.Provider).Inc()
	}

	c.JSON(status, gin.H{
		"error":      msg,
		"request_id": id,
	})
}
