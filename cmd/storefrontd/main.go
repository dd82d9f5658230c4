// storefrontd serves the headless storefront: a REST and MCP façade over a
// remote commerce backend, with cart and checkout orchestration in-process.
// Designed for Cloud Run deployment with stateless operation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/gateway"
	"storefront/internal/httpapi"
	"storefront/internal/identity"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := initLogger()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("store_id", cfg.StoreID),
		slog.String("environment", cfg.Environment),
		slog.String("api_base_url", cfg.Store.APIBaseURL),
		slog.Bool("online_payments", cfg.Store.PaymentKeyID != ""),
	)

	// Identity first: the gateway needs it as its token source.
	provider := identity.FromEnv()
	adapter := identity.NewAdapter(provider, logger)

	// Backend transport: browser-fingerprint TLS behind a circuit breaker.
	rt := transport.NewBreakerTransport(
		transport.NewBrowserTransport(30*time.Second), logger)

	gw, err := gateway.New(gateway.Options{
		BaseURL:       cfg.Store.APIBaseURL,
		Tokens:        adapter,
		MinAPIVersion: cfg.Store.MinAPIVersion,
		Transport:     rt,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	// Subscribe before Start so the initial session resolution (including an
	// env-injected identity) is observed.
	carts := cart.New(gw, logger)
	adapter.Subscribe(func(ev identity.Event) {
		switch ev.Kind {
		case identity.EventSignedIn:
			if err := carts.Load(ctx); err != nil {
				logger.Warn("initial cart load failed", slog.Any("error", err))
			}
		case identity.EventSignedOut, identity.EventMismatch:
			carts.Reset()
		}
	})

	adapter.Start(ctx, gw)
	defer adapter.Stop()

	widget := payment.NewHostedWidget(cfg.Store.CheckoutURL)

	h := httpapi.New(httpapi.Options{
		Gateway:      gw,
		Cart:         carts,
		Identity:     adapter,
		Widget:       widget,
		Logger:       logger,
		PaymentKeyID: cfg.Store.PaymentKeyID,
		Currency:     cfg.Store.Currency,
		StoreName:    cfg.Store.StoreName,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery outermost; client profile before logging so the request log
	// can attribute the calling frontend.
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.WithClientProfile(),
		middleware.Logging(logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// initLogger builds the structured logger. Production uses JSON for Cloud
// Logging; development uses text.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
