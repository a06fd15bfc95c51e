// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/promptree/promptree/internal/api"
	"github.com/promptree/promptree/internal/llm"
	"github.com/promptree/promptree/internal/mcpserver"
	"github.com/promptree/promptree/internal/repl"
	"github.com/promptree/promptree/internal/sse"
	"github.com/promptree/promptree/internal/store"
	"github.com/promptree/promptree/internal/treeservice"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeREPL}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger. The repl and mcp modes own stdout, so logs
	// go to stderr there.
	logOut := os.Stdout
	if app.mode != ModeServe {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", app.mode),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("ollama_base_url", cfg.Ollama.BaseURL),
		slog.String("ollama_model", cfg.Ollama.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Open the conversation store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Generation backend.
	gen := app.generator
	if gen == nil {
		gen, err = llm.NewOllama(cfg.Ollama.BaseURL, cfg.Ollama.Model)
		if err != nil {
			return fmt.Errorf("init ollama client: %w", err)
		}
	}

	svc := treeservice.NewService(db, gen)

	switch app.mode {
	case ModeREPL:
		return runREPL(ctx, svc, gen, logger)
	case ModeMCP:
		return runMCP(svc, logger)
	case ModeServe:
		return runServe(ctx, cfg, svc, logger)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

func runREPL(ctx context.Context, svc *treeservice.Service, gen llm.Generator, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := repl.New(svc, gen.ModelName(), os.Stdin, os.Stdout)
	if err := r.Run(ctx); err != nil {
		logger.Error("repl error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func runMCP(svc *treeservice.Service, logger *slog.Logger) error {
	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(svc).ServeStdio()
}

func runServe(ctx context.Context, cfg *Config, svc *treeservice.Service, logger *slog.Logger) error {
	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP), broker.PublishConversationEvent)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the database file so out-of-band writes (another process, a
	// sync tool) surface to connected clients.
	g.Go(func() error {
		return store.Watch(gCtx, cfg.SQLite.Path, logger, func() {
			broker.PublishStoreChanged()
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
