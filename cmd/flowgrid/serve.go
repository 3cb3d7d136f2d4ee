package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/flowgrid-io/flowgrid/channel"
	"github.com/flowgrid-io/flowgrid/credentials"
	"github.com/flowgrid-io/flowgrid/dispatch"
	"github.com/flowgrid-io/flowgrid/durable"
	"github.com/flowgrid-io/flowgrid/engine"
	"github.com/flowgrid-io/flowgrid/executors"
	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/internal/metrics"
	"github.com/flowgrid-io/flowgrid/internal/telemetry"
	"github.com/flowgrid-io/flowgrid/llm"
	"github.com/flowgrid-io/flowgrid/store"
)

func runServe(args []string) {
	cfg := loadConfig(args, "serve")
	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	tracing, err := telemetry.Setup(cfg.Telemetry, logger)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}

	if cfg.Database.DSN == "" {
		logger.Fatal("database.dsn is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	st := store.NewStore(db, logger)

	if cfg.Vault.EncryptionKey == "" {
		logger.Fatal("vault.encryption_key (ENCRYPTION_KEY) is required")
	}
	vault, err := credentials.NewVault(cfg.Vault.EncryptionKey)
	if err != nil {
		logger.Fatal("vault init failed", zap.Error(err))
	}
	creds := credentials.NewStore(st, vault, logger)

	var bus channel.Bus
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		bus = channel.NewRedisBus(client, logger)
		logger.Info("status channel on redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		bus = channel.NewMemoryBus(logger)
		logger.Info("status channel in process")
	}

	collector := metrics.NewCollector("flowgrid", logger)

	registry := executors.NewRegistry(executors.Deps{
		Credentials: creds,
		Store:       st,
		DefaultKeys: map[string]string{
			llm.ProviderGemini:    cfg.Providers.GeminiAPIKey,
			llm.ProviderOpenAI:    cfg.Providers.OpenAIAPIKey,
			llm.ProviderAnthropic: cfg.Providers.AnthropicAPIKey,
		},
		Metrics: collector,
		Logger:  logger,
	})

	driver := engine.NewDriver(graph.NewPlanner(logger), registry, bus, collector, logger)
	dispatcher := dispatch.NewDispatcher(st, driver, durable.NewMemoStore(logger), 16, logger)

	tokenSecret := cfg.Channel.TokenSecret
	if tokenSecret == "" {
		logger.Fatal("channel.token_secret (CHANNEL_TOKEN_SECRET) is required")
	}
	issuer := channel.NewTokenIssuer([]byte(tokenSecret), cfg.Channel.TokenTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/workflows/execute", handleExecute(dispatcher, issuer, logger))
	mux.Handle("GET /ws/status", channel.NewWSHandler(bus, issuer, logger))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := dispatcher.Wait(); err != nil {
		logger.Warn("dispatcher drain", zap.Error(err))
	}
	if err := tracing.Close(ctx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// handleExecute accepts a workflows/execute.workflow event, starts the run
// in the background, and answers with the run id and a subscribe token for
// its status topic.
func handleExecute(dispatcher *dispatch.Dispatcher, issuer *channel.TokenIssuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev dispatch.ExecuteEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		runID, err := dispatcher.Dispatch(r.Context(), ev)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "workflow not found", http.StatusNotFound)
				return
			}
			logger.Warn("dispatch failed", zap.String("workflow_id", ev.WorkflowID), zap.Error(err))
			http.Error(w, "dispatch failed", http.StatusInternalServerError)
			return
		}

		token, err := issuer.Issue(runID)
		if err != nil {
			logger.Warn("token issue failed", zap.String("run_id", runID), zap.Error(err))
			http.Error(w, "token issue failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"workflowRunId": runID,
			"channelToken":  token,
		})
	}
}
