package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitritashenov-cyber/video-chat/internal/app"
	httpx "github.com/dmitritashenov-cyber/video-chat/internal/http"
	"github.com/dmitritashenov-cyber/video-chat/internal/inbox"
	"github.com/dmitritashenov-cyber/video-chat/internal/store"
	"github.com/dmitritashenov-cyber/video-chat/internal/ws"
	"github.com/dmitritashenov-cyber/video-chat/pkg/metrics"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres connection + migrations
	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		log.Fatal(err)
	}
	defer pg.Close()
	if err := store.RunMigrations(ctx, pg, logger); err != nil {
		logger.Error("migrations", "err", err)
		log.Fatal(err)
	}

	// Redis-backed notification inbox
	box, err := inbox.NewRedis(ctx, cfg, logger)
	if err != nil {
		logger.Error("redis connect", "err", err)
		log.Fatal(err)
	}
	defer box.Close()

	// Room registry
	met := metrics.NewSignaling(prometheus.DefaultRegisterer)
	hub := ws.NewHub(logger, met, cfg.SendTimeout)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, pg, pg, box)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// Stop accepting requests, then drain every live session
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	hub.CloseAll()

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
