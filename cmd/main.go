package main

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

	"github.com/beautivra/storefront/internal/api"
	"github.com/beautivra/storefront/internal/cart"
	"github.com/beautivra/storefront/internal/config"
	"github.com/beautivra/storefront/internal/confirmation"
	"github.com/beautivra/storefront/internal/events"
	h "github.com/beautivra/storefront/internal/http"
	"github.com/beautivra/storefront/internal/logger"
	"github.com/beautivra/storefront/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.New(os.Stdout, level))

	// trace context flows from the browser to the shop backend
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()
	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("storage ready", "driver", cfg.StorageDriver)

	carts := cart.NewRegistry(store)
	carts.StartSweeper(cfg.CartSweepInterval, cfg.CartIdleTimeout)
	defer carts.Close()

	backend := api.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	slog.Info("shop backend configured", "url", cfg.BackendURL)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		slog.Info("publishing order events", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close event publisher", "error", err)
		}
	}()

	flowOpts := confirmation.DefaultOptions()
	flowOpts.Interval = cfg.PollInterval
	flowOpts.MaxPending = cfg.MaxPendingPolls
	flowOpts.MaxErrors = cfg.MaxFailedPolls

	router := h.NewRouter(h.RouterConfig{
		Backend:               backend,
		Carts:                 carts,
		Sessions:              h.NewSessionStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.SecureCookies),
		Publisher:             publisher,
		Confirmation:          flowOpts,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		PublicOrigin:          cfg.PublicOrigin,
		RequestTimeout:        cfg.RequestTimeout,
		BackendTimeout:        cfg.BackendTimeout,
		MaxRequestBodySize:    cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, "storefront"),
		ReadTimeout: 10 * time.Second,
		// confirmation polling may hold a request for the whole request timeout
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exited")
}

// openStorage returns the cart storage for the configured driver and a
// func releasing its connections.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.StorageDriver {
	case "sqlite":
		s, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case "postgres":
		s, err := storage.OpenPostgres(&cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return storage.NewRedisStorage(client, cfg.RedisTTL), func() { client.Close() }, nil

	case "mongo":
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		s := storage.NewMongoStorage(db)
		if err := s.CreateIndexes(ctx, cfg.MongoTTL); err != nil {
			db.Client().Disconnect(ctx)
			return nil, nil, err
		}
		return s, func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				slog.Error("failed to disconnect from MongoDB", "error", err)
			}
		}, nil
	}

	return storage.NewMemoryStorage(), func() {}, nil
}
