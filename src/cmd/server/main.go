package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ce-fello/taxonomy-buddy/src/internal/api"
	"github.com/ce-fello/taxonomy-buddy/src/internal/config"
	"github.com/ce-fello/taxonomy-buddy/src/internal/service"
	"github.com/ce-fello/taxonomy-buddy/src/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfgFile := flag.String("config", "", "config file (YAML)")
	migDir := flag.String("migrations", "", "migrations directory (embedded when empty)")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		panic(err)
	}
	if *migDir != "" {
		cfg.Database.MigrationsDir = *migDir
	}

	logger := newLogger(cfg.Log.Level)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	sugar := logger.Sugar()

	repos, closeStore := openStore(cfg, logger)
	defer closeStore()

	svc := service.NewService(repos, logger)
	h := api.NewHandler(svc, logger, cfg.HTTP.RequestTimeout)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(h, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		sugar.Infof("listening on %s (storage=%s)", srv.Addr, cfg.Storage.Driver)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Infof("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorf("server forced to shutdown: %v", err)
	}
	sugar.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func openStore(cfg config.Config, logger *zap.Logger) (store.Repository, func()) {
	sugar := logger.Sugar()

	if cfg.Storage.Driver == config.DriverMemory {
		sugar.Warn("using in-memory storage; data is lost on exit")
		return store.NewMemoryStore(logger), func() {}
	}

	db := cfg.Database
	conn, err := store.ConnectWithRetry(db.URL, db.ConnectAttempts, db.ConnectDelay, store.PoolOptions{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	}, logger)
	if err != nil {
		sugar.Fatalf("failed to connect to db: %v", err)
	}

	if err := store.Migrate(db.URL, db.MigrationsDir, logger); err != nil {
		sugar.Fatalf("migrations failed: %v", err)
	}
	sugar.Info("migrations applied")

	return store.NewRepositories(conn, logger), func() {
		if err := conn.Close(); err != nil {
			sugar.Errorf("failed to close db: %v", err)
		}
	}
}
