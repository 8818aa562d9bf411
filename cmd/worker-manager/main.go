// cmd/worker-manager/main.go
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"startup-match-workers/internal/common/camunda"
	"startup-match-workers/internal/common/config"
	"startup-match-workers/internal/common/database"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/common/observability"
	"startup-match-workers/internal/matching"
	"startup-match-workers/internal/transaction"

	cc "startup-match-workers/internal/workers/checkout/calculate-checkout"
	fm "startup-match-workers/internal/workers/matching/filter-matches"
	ms "startup-match-workers/internal/workers/matching/match-startups"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, cfg.Camunda.BrokerAddress)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres migrations failed", zap.Error(err))
	}

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Matching pipeline ---
	supplier, err := buildCatalog(ctx, cfg, pg, rdb, log, zapLog)
	if err != nil {
		zapLog.Fatal("catalog setup failed", zap.Error(err))
	}

	invoker, err := buildInvoker(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("llm invoker setup failed", zap.Error(err))
	}

	publisher, closePublisher, err := buildPublisher(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("event publisher setup failed", zap.Error(err))
	}
	defer closePublisher()

	notifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		zapLog.Fatal("sns setup failed", zap.Error(err))
	}

	repo := transaction.NewPostgresRepository(pg.DB)

	// --- Workers ---
	var workers []*camunda.Worker
	register := func(taskType string, handler camunda.HandlerFunc) {
		if w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	if config.IsWorkerEnabled(cfg, ms.TaskType) {
		msCfg, err := ms.NewConfig(cfg)
		if err != nil {
			zapLog.Fatal("invalid match-startups config", zap.Error(err))
		}
		handler := ms.NewHandler(msCfg, ms.Dependencies{
			Matcher:       matching.NewMatcher(supplier, invoker, msCfg.LeakMode, log),
			Repository:    repo,
			Redis:         rdb.Client,
			Publisher:     publisher,
			Observability: obs,
			Logger:        log,
		})
		register(ms.TaskType, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, fm.TaskType) {
		handler := fm.NewHandler(fm.NewConfig(cfg), repo, log)
		register(fm.TaskType, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, cc.TaskType) {
		ccCfg, err := cc.NewConfig(cfg)
		if err != nil {
			zapLog.Fatal("invalid calculate-checkout config", zap.Error(err))
		}
		handler := cc.NewHandler(ccCfg, repo, notifier, log)
		register(cc.TaskType, handler.Handle)
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "redis": "ok"}
		status, code := "ready", http.StatusOK
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		if err := rdb.Ping(checkCtx); err != nil {
			checks["redis"] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		writeStatus(w, code, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.Server.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Stop(30 * time.Second)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
