package main

import (
	"context"
	"errors"
	"flag"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go-exchange-rate-converter/config"
	"go-exchange-rate-converter/convert"
	"go-exchange-rate-converter/http"
	"go-exchange-rate-converter/ratesource"
	"go-exchange-rate-converter/refresh"
	"os"
	"os/signal"
	"syscall"
	"time"

	nhttp "net/http"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	w := log.NewSyncWriter(os.Stderr)
	logger := log.NewLogfmtLogger(w)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	cfg, err := config.Load(*configPath)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load config", "err", err)
		os.Exit(1)
	}
	allowed, err := cfg.Level()
	if err != nil {
		level.Error(logger).Log("msg", "bad log level", "err", err)
		os.Exit(1)
	}
	logger = level.NewFilter(logger, allowed)
	base, err := cfg.Base()
	if err != nil {
		level.Error(logger).Log("msg", "bad default base", "err", err)
		os.Exit(1)
	}
	amount, err := cfg.Amount()
	if err != nil {
		level.Error(logger).Log("msg", "bad initial amount", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rateService := ratesource.NewService(cfg.Rates.URL, cfg.Rates.Timeout)
	rateService = ratesource.NewInstrumentingService(ratesource.NewMetrics(reg), rateService)
	rateService = ratesource.NewLoggingService(log.With(logger, "component", "rates_rest"), rateService)
	rateService = ratesource.NewSharedService(rateService)

	// one-off conversions may reuse a recent table, the board always asks the source
	cachedRates := ratesource.NewCachingService(cfg.Rates.CacheTTL, log.With(logger, "component", "rates_cache"), rateService)
	cachedRates = ratesource.NewLoggingService(log.With(logger, "component", "rates_cache"), cachedRates)

	convertService := convert.NewService()
	convertService = convert.NewLoggingService(log.With(logger, "component", "convert"), convertService)

	// board conversions run for every row on each refresh and keystroke; they log at debug
	boardConverter := convert.NewLoggingService(level.Debug(log.With(logger, "component", "board_convert")), convert.NewService())

	board := refresh.New(rateService, boardConverter, refresh.NewTicker(cfg.Board.RefreshInterval), logger,
		refresh.WithBase(base),
		refresh.WithAmount(amount),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boardDone := make(chan error, 1)
	go func() {
		boardDone <- board.Run(ctx)
	}()

	server := &nhttp.Server{
		Addr:    cfg.ListenAddr,
		Handler: http.NewServer(cachedRates, convertService, board, reg, logger),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	level.Info(logger).Log("msg", "listening", "addr", cfg.ListenAddr, "base", base, "interval", cfg.Board.RefreshInterval)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nhttp.ErrServerClosed) {
		level.Error(logger).Log("msg", "server failed", "err", err)
		stop()
		<-boardDone
		os.Exit(1)
	}

	if err := <-boardDone; err != nil && !errors.Is(err, context.Canceled) {
		level.Error(logger).Log("msg", "board failed", "err", err)
	}
}
