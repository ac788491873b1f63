// Package server exposes candles, signals, backtests and symbol search over
// HTTP.
//
// The package is organized as:
//   - api.go: Server and its dependencies, routing, lifecycle
//   - handler.go: HTTP request handlers
//   - middleware.go: request ID, access log, CORS
//   - validator.go: query parameter validation
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/indicators"
	"github.com/rustyeddy/tradelog/internal/metrics"
	"github.com/rustyeddy/tradelog/strategies"
	"github.com/rustyeddy/tradelog/yahoo"
)

const (
	DefaultTimeout      = 30 * time.Second
	ServiceName         = "tradelog"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// Version is reported by /health. The CLI sets it at startup.
var Version = "dev"

// Searcher looks up symbols for autocomplete.
type Searcher interface {
	Search(ctx context.Context, query string) ([]yahoo.Quote, error)
}

// Defaults are applied to query parameters the client leaves out.
type Defaults struct {
	Symbol      string
	Interval    string
	Params      strategies.Params
	Overlays    indicators.OverlaySpec
	Policy      string
	Aggregation string
}

// Options configures a Server. Candles is required; a nil Searcher
// disables /api/search_symbol and a nil Metrics disables /metrics.
type Options struct {
	Candles     feed.CandleProvider
	Searcher    Searcher
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Defaults    Defaults
	Timeout     time.Duration
	CORSOrigins []string
}

// Server handles HTTP requests using Gin framework
type Server struct {
	candles   feed.CandleProvider
	searcher  Searcher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	validator *Validator
	defaults  Defaults
	timeout   time.Duration
	origins   []string
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Candles == nil {
		return nil, errors.New("server: a candle provider is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Defaults.Symbol == "" {
		opts.Defaults.Symbol = "AAPL"
	}
	if opts.Defaults.Interval == "" {
		opts.Defaults.Interval = "1d"
	}
	if opts.Defaults.Params == (strategies.Params{}) {
		opts.Defaults.Params = strategies.DefaultParams()
	}
	return &Server{
		candles:   opts.Candles,
		searcher:  opts.Searcher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		validator: GetValidator(),
		defaults:  opts.Defaults,
		timeout:   opts.Timeout,
		origins:   opts.CORSOrigins,
	}, nil
}

// Routes configures all API routes
func (s *Server) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(s.accessLogMiddleware())
	router.Use(gin.CustomRecovery(s.recover))
	router.Use(corsMiddleware(s.origins))

	api := router.Group("/api")
	api.GET("/candles", s.GetCandles)
	api.GET("/backtest", s.GetBacktest)
	api.GET("/search_symbol", s.SearchSymbol)

	router.GET("/health", s.HealthCheck)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
