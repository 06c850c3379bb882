package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"toppick-workers/internal/catalog"
	"toppick-workers/internal/common/aws"
	"toppick-workers/internal/common/camunda"
	"toppick-workers/internal/common/config"
	"toppick-workers/internal/common/database"
	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/common/observability"

	mcp "toppick-workers/internal/workers/catalog/manage-catalog-product"
	atp "toppick-workers/internal/workers/toppick/announce-top-pick"
	ftc "toppick-workers/internal/workers/toppick/fetch-top-pick-candidates"
	stp "toppick-workers/internal/workers/toppick/select-top-pick"
)

const shutdownTimeout = 30 * time.Second

// readinessCheck reports whether one backing service answers.
type readinessCheck func(ctx context.Context) error

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker manager: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	})
	log.Info("starting worker manager", map[string]interface{}{"version": cfg.App.Version})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("otel metrics disabled", map[string]interface{}{"error": err.Error()})
		obs = observability.Nop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]readinessCheck{}
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	zeebeClient, err := connectZeebe(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers = append(closers, zeebeClient.Close)
	checks["zeebe"] = func(ctx context.Context) error {
		_, err := zeebeClient.NewTopologyCommand().Send(ctx)
		return err
	}

	store, err := openCatalog(ctx, cfg, log, checks, &closers)
	if err != nil {
		return err
	}

	var publisher aws.SNSPublisher
	if cfg.Announcements.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.Announcements.Region)
		if err != nil {
			return err
		}
		publisher = client
		log.Info("sns publisher ready", map[string]interface{}{"topicArn": cfg.Announcements.TopicARN})
	}

	manager := camunda.NewManager(zeebeClient, obs, log)
	registerWorkers(manager, cfg, store, publisher, obs, log)
	log.Info("workers registered", map[string]interface{}{"running": manager.Running()})

	server := newHealthServer(cfg.Server.Addr(), checks)
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := manager.Stop(shutdownCtx); err != nil {
		log.Error("workers did not stop cleanly", map[string]interface{}{"error": err.Error()})
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn("otel shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped", nil)
	return nil
}

func connectZeebe(ctx context.Context, cfg *config.Config, log logger.Logger) (zbc.Client, error) {
	var client zbc.Client
	err := camunda.RetryWithBackoff(ctx, camunda.DefaultRetryConfig, func(ctx context.Context) error {
		var err error
		client, err = camunda.NewClient(ctx, camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.UsePlaintext,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, retryLogger(log, "zeebe client initialization"))
	if err != nil {
		return nil, fmt.Errorf("zeebe client failed after retries: %w", err)
	}

	log.Info("zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})
	return client, nil
}

// openCatalog connects the configured backend and, when enabled, puts the
// redis candidate cache in front of it.
func openCatalog(ctx context.Context, cfg *config.Config, log logger.Logger, checks map[string]readinessCheck, closers *[]func() error) (catalog.Store, error) {
	var store catalog.Store

	switch cfg.Catalog.Backend {
	case config.BackendElasticsearch:
		var es *database.ElasticsearchClient
		err := camunda.RetryWithBackoff(ctx, camunda.DefaultRetryConfig, func(ctx context.Context) error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, retryLogger(log, "elasticsearch connection"))
		if err != nil {
			return nil, fmt.Errorf("elasticsearch failed after retries: %w", err)
		}
		checks["elasticsearch"] = es.Ping

		esStore := catalog.NewElasticsearchStore(es.Client, cfg.Catalog.Index, log)
		if err := esStore.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		store = esStore

	default:
		var pg *database.PostgresClient
		err := camunda.RetryWithBackoff(ctx, camunda.DefaultRetryConfig, func(ctx context.Context) error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				_ = pg.Close()
				return err
			}
			return nil
		}, retryLogger(log, "postgres connection"))
		if err != nil {
			return nil, fmt.Errorf("postgres failed after retries: %w", err)
		}
		*closers = append(*closers, pg.Close)
		checks["postgres"] = pg.Ping

		store = catalog.NewPostgresStore(pg.DB, log)
	}
	log.Info("catalog store connected", map[string]interface{}{"backend": cfg.Catalog.Backend})

	if !cfg.Catalog.CacheEnabled {
		return store, nil
	}

	rdb := database.NewRedis(cfg.Database.Redis)
	err := camunda.RetryWithBackoff(ctx, camunda.DefaultRetryConfig, rdb.Ping, retryLogger(log, "redis connection"))
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis failed after retries: %w", err)
	}
	*closers = append(*closers, rdb.Close)
	checks["redis"] = rdb.Ping

	log.Info("candidate cache enabled", map[string]interface{}{"ttl": cfg.Catalog.CacheTTL().String()})
	return catalog.NewCachedStore(store, rdb.Client, cfg.Catalog.CacheTTL(), log), nil
}

func registerWorkers(m *camunda.Manager, cfg *config.Config, store catalog.Store, publisher aws.SNSPublisher, obs *observability.Observability, log logger.Logger) {
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	fetch := ftc.NewHandler(&ftc.Config{
		Timeout:        timeout(ftc.TaskType),
		CandidateLimit: cfg.Catalog.CandidateLimit,
	}, store, log)
	m.Start(ftc.TaskType, config.GetWorkerConfig(cfg, ftc.TaskType), fetch.Handle)

	sel := stp.NewHandler(&stp.Config{
		Timeout:        timeout(stp.TaskType),
		CandidateLimit: cfg.Catalog.CandidateLimit,
		Now:            time.Now,
	}, store, obs, log)
	m.Start(stp.TaskType, config.GetWorkerConfig(cfg, stp.TaskType), sel.Handle)

	announce := atp.NewHandler(&atp.Config{
		Enabled:  cfg.Announcements.Enabled,
		TopicARN: cfg.Announcements.TopicARN,
		Timeout:  timeout(atp.TaskType),
	}, publisher, log)
	m.Start(atp.TaskType, config.GetWorkerConfig(cfg, atp.TaskType), announce.Handle)

	manage := mcp.NewHandler(&mcp.Config{
		Timeout: timeout(mcp.TaskType),
	}, store, log)
	m.Start(mcp.TaskType, config.GetWorkerConfig(cfg, mcp.TaskType), manage.Handle)
}

func retryLogger(log logger.Logger, operation string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		log.Warn(operation+" failed, retrying", map[string]interface{}{
			"attempt":     attempt,
			"nextRetryIn": delay.String(),
			"error":       err.Error(),
		})
	}
}

func newHealthServer(addr string, checks map[string]readinessCheck) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeStatus(w, code, map[string]interface{}{"status": status, "checks": results})
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
