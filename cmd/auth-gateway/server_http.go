package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	config "github.com/NordCoder/bazaar/internal/config/auth-gateway"
	"github.com/NordCoder/bazaar/internal/obs"
	authsvc "github.com/NordCoder/bazaar/internal/services/auth-gateway/auth"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, api *authsvc.Server, st *store) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(obs.HTTPMiddleware(cfg.OTEL.ServiceName))

	api.Routes(r)
	r.Handle("/healthz", obs.HealthHandler(st.Health))
	if cfg.Server.MetricsAddr == "" {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}

func obsMetricsServer(cfg *config.Config, st *store, logger *zap.Logger) *http.Server {
	return obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, st.Health, logger)
}
