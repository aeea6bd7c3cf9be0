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

	"github.com/gin-gonic/gin"

	"github.com/sykell/bookmarks/internal/api"
	"github.com/sykell/bookmarks/internal/config"
	"github.com/sykell/bookmarks/internal/crawler"
	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/importer"
	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bookmarks: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Debug: cfg.Logging.Debug})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Initializing database", logger.String("driver", cfg.Database.Driver))
	dbConn, err := db.InitDB(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	opts := importer.Options{
		BatchSize:     cfg.Import.BatchSize,
		MaxRows:       cfg.Import.MaxRows,
		DefaultSource: cfg.Import.DefaultSource,
	}

	var crawlerService *crawler.Service
	if cfg.Metadata.Enabled {
		crawlerCfg := crawler.DefaultConfig()
		crawlerCfg.Workers = cfg.Metadata.Workers
		crawlerCfg.QueueSize = cfg.Metadata.QueueSize
		crawlerCfg.Timeout = cfg.Metadata.Timeout
		crawlerCfg.AllowPrivateNetworks = cfg.Metadata.AllowPrivateNetworks

		crawlerService = crawler.NewService(dbConn, log, crawlerCfg)
		if err := crawlerService.Start(); err != nil {
			return fmt.Errorf("start crawler: %w", err)
		}
		opts.Notifier = crawlerService
		log.Info("Title crawler started", logger.Int("workers", crawlerCfg.Workers))
	}

	importService := importer.NewService(service.NewImportStore(dbConn), log, opts)

	if !cfg.Logging.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterDeps{
		DB:       dbConn,
		Importer: importService,
		Config:   cfg,
		Log:      log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", logger.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Shutting down server", logger.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}

	if crawlerService != nil {
		if err := crawlerService.Stop(); err != nil {
			log.Error("Failed to stop crawler service", logger.Error(err))
		}
	}

	log.Info("Server exited")
	return nil
}
