package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	config "github.com/NordCoder/bazaar/internal/config/auth-gateway"
)

func main() {
	configPath := flag.String("config", "config/auth-gateway.yaml", "path to the yaml config")
	flag.Parse()

	_ = godotenv.Load()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting auth-gateway",
		zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version), zap.String("db", cfg.DB.Driver))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer st.Close()

	svc, err := initAuth(rootCtx, cfg, logger, st)
	if err != nil {
		logger.Fatal("auth init", zap.Error(err))
	}
	svc.Start(rootCtx)

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = obsMetricsServer(cfg, st, logger)
	}

	httpSrv := buildHTTPServer(cfg, logger, svc.server, st)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shCtx)
	}
	svc.Stop()
	logger.Info("bye")
}
