package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	weeredis "github.com/dracory/weeredis"
)

func main() {
	// Load configuration (flags override env)
	cfg, err := weeredis.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	if weeredis.IsInsecureSecret(cfg) {
		logger.Warn("SESSION_SECRET is the development default; stored passwords are sealed with it")
	}

	app, err := weeredis.New(cfg, weeredis.WithLogger(logger))
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Restore(ctx)
	go app.RunMaintenance(ctx, time.Hour)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("WeeRedis listening", "addr", addr, "api", cfg.BasePath, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
