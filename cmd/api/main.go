package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaydesk/relaydesk/internal/config"
	"github.com/relaydesk/relaydesk/internal/handler"
	"github.com/relaydesk/relaydesk/internal/hub"
	"github.com/relaydesk/relaydesk/internal/observability/metrics"
	"github.com/relaydesk/relaydesk/internal/relay"
	"github.com/relaydesk/relaydesk/internal/service/console"
	settingsreg "github.com/relaydesk/relaydesk/internal/settings"
	"github.com/relaydesk/relaydesk/internal/store"
	"github.com/relaydesk/relaydesk/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Log.Level)

	promRegistry := prometheus.NewRegistry()
	consoleMetrics := metrics.New(promRegistry)

	conversationStore := store.New()
	fanout := hub.New(logger)
	relayClient := relay.New(relay.Config{Timeout: cfg.Relay.Timeout, Logger: logger})
	registry := settingsreg.New(settingsreg.Settings{
		MessageEndpoint: cfg.Relay.MessageEndpoint,
		ActionEndpoint:  cfg.Relay.ActionEndpoint,
	})

	svc := console.New(conversationStore, fanout, relayClient, registry, logger, consoleMetrics)

	router := handler.NewRouter(handler.RouterConfig{
		AuthToken:          cfg.Auth.Token,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
	}, svc, registry, promRegistry, logger)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("relaydesk console listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
