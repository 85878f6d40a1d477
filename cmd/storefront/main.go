package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hittygas/storefront/internal/api"
	"github.com/hittygas/storefront/internal/cart"
	"github.com/hittygas/storefront/internal/config"
	"github.com/hittygas/storefront/internal/events"
	"github.com/hittygas/storefront/internal/health"
	"github.com/hittygas/storefront/internal/notifications"
	"github.com/hittygas/storefront/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage backend setup
	store, err := newStore(cfg)
	if err != nil {
		slog.Error("❌ Error opening local storage", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("⚠️ Error closing storage", slog.String("error", err.Error()))
		}
	}()

	// Tracing (optional)
	if cfg.Otel.Enabled {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			slog.Error("❌ Error setting up tracing", "error", err.Error())
			os.Exit(1)
		}

		defer shutdown()
	}

	client, err := api.NewClient(api.Options{
		BaseURL:     cfg.API.BaseURL,
		CSRFBaseURL: cfg.API.CSRFBaseURL,
		HTTPClient:  &http.Client{Timeout: cfg.API.Timeout},
		Store:       store,
		Logger:      logger,
	})
	if err != nil {
		slog.Error("❌ Error creating API client", "error", err.Error())
		os.Exit(1)
	}

	hub := events.NewHub()

	unsubscribe := hub.Subscribe(func(event any) {
		if added, ok := event.(events.CartItemAdded); ok {

			msg := "Item added to cart"
			if added.Merged {
				msg = "Cart quantity updated"
			}

			slog.Info(msg, slog.String("product_id", added.ProductID), slog.Int("quantity", added.Quantity))
		}
	})
	defer unsubscribe()

	cartStore := cart.NewStore(ctx, store, hub, logger)

	slog.Info("Cart hydrated",
		slog.Int("items", cartStore.ItemCount()),
		slog.Float64("subtotal", cartStore.Subtotal()),
		slog.String("payment_method", string(cartStore.PaymentMethod())))

	notificationStore := notifications.NewStore(client, cfg.Notifications.PollInterval, logger)

	go notificationStore.Run(ctx)

	// SIGUSR1 is the "tab regained focus" analog: poke the notification
	// store for an immediate refresh.
	wakeSignals := make(chan os.Signal, 1)
	signal.Notify(wakeSignals, syscall.SIGUSR1)

	go func() {
		for range wakeSignals {
			notificationStore.Wake()
		}
	}()

	healthHandler, err := health.NewHealthHandler(cfg, client, store)
	if err != nil {
		slog.Error("❌ Error creating health handler", "error", err.Error())
		os.Exit(1)
	}

	// Metrics + health endpoint
	routerMux := http.NewServeMux()
	routerMux.Handle("GET /metrics", promhttp.Handler())
	routerMux.Handle("GET /health", healthHandler.Handler())

	server := http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: routerMux,
	}

	slog.Info("🚀 Storefront is starting...",
		slog.String("env", cfg.Env),
		slog.String("api", cfg.API.BaseURL),
		slog.String("metrics", cfg.Metrics.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start metrics server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop...")

	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Metrics server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Storefront shut down gracefully.")
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {

	if cfg.Storage.Backend == "redis" {

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConnect.Addr,
			Username: cfg.RedisConnect.Username,
			Password: cfg.RedisConnect.Password,
			DB:       cfg.RedisConnect.DB,
		})

		return storage.NewRedisStore(client, cfg.RedisConnect.Prefix), nil
	}

	return storage.NewFileStore(cfg.Storage.Dir)
}

func setupTracing(ctx context.Context, cfg *config.Config) (func(), error) {

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Otel.ExporterEndpoint))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.Otel.ServiceName),
		)),
	)
	otel.SetTracerProvider(provider)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("⚠️ Tracer provider shutdown encountered an issue", slog.String("error", err.Error()))
		}
	}, nil
}
