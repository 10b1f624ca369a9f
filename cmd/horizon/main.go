package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/omerlevi/horizon/internal/ai"
	"github.com/omerlevi/horizon/internal/cache"
	"github.com/omerlevi/horizon/internal/config"
	"github.com/omerlevi/horizon/internal/conversation"
	"github.com/omerlevi/horizon/internal/httpapi"
	"github.com/omerlevi/horizon/internal/observability"
	"github.com/omerlevi/horizon/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	stores, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer stores.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("store: in-memory (no DATABASE_URL set)")
	} else {
		log.Printf("store: postgres")
	}

	adapter, err := ai.NewAdapter(ai.Config{
		Mode: cfg.AIAdapterMode,
		URL:  cfg.AIGatewayURL,
	})
	if err != nil {
		log.Fatalf("ai adapter init failed: %v", err)
	}
	if _, ok := adapter.(*ai.MockAdapter); ok {
		log.Printf("ai adapter: mock (no AI_GATEWAY_URL set)")
	} else {
		log.Printf("ai adapter: http %s", cfg.AIGatewayURL)
	}

	orchestrator := conversation.NewOrchestrator(stores.Visions(), adapter, metrics)
	drafts := cache.New()

	api := httpapi.New(cfg, orchestrator, stores, drafts, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
