// Command taskweaved runs the task-processing workflow daemon: the HTTP
// control surface over the checkpointed analyze/schedule/review/execute
// pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskweave/taskweave/pkg/api"
	"github.com/taskweave/taskweave/pkg/config"
	"github.com/taskweave/taskweave/pkg/planner"
	"github.com/taskweave/taskweave/pkg/planner/llm"
	"github.com/taskweave/taskweave/pkg/planner/prompt"
	"github.com/taskweave/taskweave/pkg/workflow"
	"github.com/taskweave/taskweave/pkg/workflow/checkpoint"
	"github.com/taskweave/taskweave/pkg/workflow/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML or JSON config file")
	flag.Parse()

	cfg := config.New(nil)
	if *configPath != "" {
		loaded, err := config.FromFile(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	renderer, err := prompt.NewDefaultRenderer()
	if err != nil {
		return fmt.Errorf("load prompt templates: %w", err)
	}

	client := newGenerationClient(cfg, logger)
	logger.Info("generation backend configured", "backend", client.Name())

	stages := planner.NewStages(client, renderer)
	pipeline, err := planner.NewPipeline(stages)
	if err != nil {
		return fmt.Errorf("compile pipeline: %w", err)
	}

	controllerOpts := []planner.ControllerOption{
		planner.WithControllerLogger(logger),
	}
	if cfg.Bool("observability.metrics", true) {
		controllerOpts = append(controllerOpts, planner.WithRunOptions(
			workflow.WithMetrics(observability.NewMetricsRecorder()),
		))
	}
	if cfg.Bool("observability.tracing", false) {
		controllerOpts = append(controllerOpts, planner.WithRunOptions(
			workflow.WithTracing(observability.NewSpanManager()),
		))
	}
	controller := planner.NewController(pipeline, store, controllerOpts...)

	tokens := api.NewTokenService(cfg.String("auth.secret", "taskweave-dev-secret"))
	handler := api.NewHandler(controller, logger)

	addr := cfg.String("server.addr", ":8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(handler, tokens),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		cfg.Duration("server.shutdown_timeout", 10*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newLogger builds the process logger: JSON to stderr, level from config.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.String("log.level", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newStore opens the checkpoint store. SQLite is the default; the memory
// store is for development only, state is lost on restart.
func newStore(cfg config.Config) (checkpoint.Store, error) {
	if cfg.String("checkpoint.store", "sqlite") == "memory" {
		return checkpoint.NewMemoryStore(), nil
	}
	return checkpoint.NewSQLiteStore(cfg.String("checkpoint.path", "taskweave.db"))
}

// newGenerationClient selects the generation backend. A live Ollama
// backend is always wrapped in the stub fallback so a flaky backend can
// never stall the pipeline.
func newGenerationClient(cfg config.Config, logger *slog.Logger) llm.Client {
	if cfg.String("llm.backend", "stub") == "stub" {
		return llm.NewStub()
	}
	ollama := llm.NewOllama(
		llm.WithBaseURL(cfg.String("llm.base_url", "http://localhost:11434")),
		llm.WithModel(cfg.String("llm.model", "llama3")),
	)
	return llm.NewFallback(ollama, logger, observability.NewMetricsRecorder())
}
