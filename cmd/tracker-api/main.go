// Tracker API — HTTP API для workflows и процессов согласования.
//
// API:
//   - Создаёт workflows и хранит их в PostgreSQL
//   - Запускает процессы и выполняет шаги через process.Engine
//   - Публикует события процессов в RabbitMQ (если доступен)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Tracker/internal/api"
	"github.com/shaiso/Tracker/internal/config"
	"github.com/shaiso/Tracker/internal/mq"
	"github.com/shaiso/Tracker/internal/process"
	"github.com/shaiso/Tracker/internal/repo"
	"github.com/shaiso/Tracker/internal/telemetry"
	"github.com/shaiso/Tracker/internal/validation"
	"github.com/shaiso/Tracker/internal/workflow"
)

var startTime = time.Now()

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting tracker-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Основная БД
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// БД для Database-проверок
	databases := make(map[string]validation.Querier, len(cfg.ValidationDatabases))
	for name, dsn := range cfg.ValidationDatabases {
		vpool, err := repo.NewPool(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to validation database", "name", name, "error", err)
			os.Exit(1)
		}
		defer vpool.Close()
		databases[name] = vpool
		logger.Info("validation database connected", "name", name)
	}

	// Репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	processRepo := repo.NewProcessRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	validationLogRepo := repo.NewValidationLogRepo(pool)

	registry := validation.DefaultRegistry(validation.StrategyConfig{
		HTTPClient: &http.Client{Timeout: cfg.ValidationTimeout},
		Databases:  databases,
	})
	for _, kind := range registry.Missing() {
		logger.Warn("no strategy registered for validation type", "type", kind)
	}

	dispatcher := validation.NewDispatcher(validation.Config{
		Registry: registry,
		Logs:    validationLogRepo,
		Timeout: cfg.ValidationTimeout,
		Logger:  logger,
	})

	engineCfg := process.Config{
		Workflows:  workflowRepo,
		Processes:  processRepo,
		Executions: executionRepo,
		Validator:  dispatcher,
		Logger:     logger,
	}

	// RabbitMQ
	if cfg.RabbitMQURL != "" {
		mqConn, err := mq.NewConnection(cfg.RabbitMQURL, "tracker-api", logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, events will not be published", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			engineCfg.Events = mq.NewPublisher(mqConn, logger)
		}
	}

	engine := process.New(engineCfg)

	handler := api.NewHandler(api.Config{
		Workflows:      workflow.NewService(workflowRepo, logger),
		Processes:      engine,
		ValidationLogs: validationLogRepo,
		Logger:         logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthz(pool))
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.APIAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// healthz отвечает 503, если основная БД недоступна.
func healthz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	}
}
