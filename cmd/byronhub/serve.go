package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"byronhub/internal/config"
	"byronhub/internal/metrics"
	"byronhub/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// serve runs the long-lived side of the client until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	if err := config.Watch(ctx, a.configPath, 30*time.Second, a.logger, func(updated *config.Config) {
		if updated.API.BaseURL != a.cfg.API.BaseURL || updated.Storage.Driver != a.cfg.Storage.Driver {
			a.logger.Warn().Msg("config changed; backend and storage settings apply after restart")
			return
		}
		a.logger.Info().Time("reloaded_at", time.Now()).Msg("config reloaded")
	}); err != nil {
		a.logger.Error().Err(err).Msg("config watch failed")
	}

	go startHealthServer(ctx, a.cfg.Monitoring.HealthCheckPort, a, a.logger)

	if a.cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, a.cfg.Monitoring.PrometheusPort, a.logger)
	}

	if a.cfg.Backup.Enabled && a.sqlite != nil {
		svc := storage.NewBackupService(a.sqlite, a.cfg.Backup.Path, a.cfg.BackupInterval(), a.cfg.BackupRetention(), a.logger)
		go svc.Start(ctx)
	}

	a.logger.Info().Msg("byronhub client started")
	<-ctx.Done()
	return nil
}

func startHealthServer(ctx context.Context, port int, a *app, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if a.sqlite != nil {
			if err := a.sqlite.Ping(ctxPing); err != nil {
				http.Error(w, "store not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if a.rdb != nil {
			if err := a.rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if err := a.client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	listen(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	listen(ctx, port, mux, "metrics", logger)
}

func listen(ctx context.Context, port int, h http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
