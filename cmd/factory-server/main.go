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
	"sync"
	"syscall"
	"time"

	"go-toolbox-factory/internal/blocklib"
	"go-toolbox-factory/internal/config"
	"go-toolbox-factory/internal/controller"
	tblog "go-toolbox-factory/internal/log"
	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/preview"
	"go-toolbox-factory/internal/storage"
	"go-toolbox-factory/internal/templating"
	"go-toolbox-factory/internal/workspace"
)

// application holds the dependencies of the factory server. The editing
// session is single-writer: every handler touching ctrl or library holds mu.
type application struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   storage.ExportStore
	engine  *templating.Engine
	hub     *preview.Hub
	mu      sync.Mutex
	ctrl    *controller.Controller
	library *blocklib.Library
}

// newApplication wires a fresh editing session to its collaborators.
func newApplication(cfg *config.Config, logger *slog.Logger, store storage.ExportStore) (*application, error) {
	engine, err := templating.NewEngine(store)
	if err != nil {
		return nil, err
	}

	var checkOrigin func(*http.Request) bool
	if cfg.Server.AllowAllOrigins {
		checkOrigin = func(*http.Request) bool { return true }
	}
	hub := preview.NewHub(tblog.WithComponent(logger, "preview"), checkOrigin)

	ctrl := controller.New(
		model.NewFactoryModel(),
		workspace.New(),
		hub,
		nil,
		tblog.WithComponent(logger, "controller"),
	)

	return &application{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		engine:  engine,
		hub:     hub,
		ctrl:    ctrl,
		library: blocklib.New(tblog.WithComponent(logger, "library")),
	}, nil
}

func main() {
	// 1. Flags and configuration
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	logger, closer := tblog.New(tblog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}, os.Stdout)
	defer closer.Close()
	slog.SetDefault(logger)

	// 3. Storage
	store, err := storage.NewFileStore(cfg.Export.Dir, tblog.WithComponent(logger, "storage"))
	if err != nil {
		logger.Error("Failed to initialize export store", "error", err)
		os.Exit(1)
	}
	logger.Info("Using export directory", "path", store.GetBasePath())

	// 4. Application
	app, err := newApplication(cfg, logger, store)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer app.hub.Close()

	if len(cfg.Library.Preload) > 0 {
		n, err := app.library.LoadFiles(os.DirFS("."), cfg.Library.Preload...)
		if err != nil {
			logger.Error("Failed to preload block library", "error", err)
			os.Exit(1)
		}
		logger.Info("Preloaded block library", "definitions", n)
	}

	// 5. Serve until interrupted
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting toolbox factory server", "address", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
