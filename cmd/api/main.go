package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ec-checkout/internal/api"
	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/command"
	"github.com/example/ec-checkout/internal/config"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/infrastructure/cache"
	"github.com/example/ec-checkout/internal/infrastructure/kafka"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/logging"
	"github.com/example/ec-checkout/internal/metrics"
	"github.com/example/ec-checkout/internal/outbox"
	"github.com/example/ec-checkout/internal/query"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}
	logCloser := logging.Setup(cfg.Log.File)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("[API] ========================================")
	log.Println("[API] EC Shop - Checkout Service")
	log.Println("[API] ========================================")
	log.Printf("[API] Store driver: %s", cfg.Database.Driver)
	log.Printf("[API] Kafka: %v (topic %s)", cfg.Kafka.Brokers, cfg.Kafka.Topic)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Failed to open store: %v", err)
	}
	defer st.Close()

	m := metrics.New()

	idempotency, closeIdempotency := openIdempotency(ctx, cfg)
	defer closeIdempotency()

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	if err != nil {
		log.Fatalf("[API] %v", err)
	}

	cmdHandler := command.NewHandler(st, command.Options{
		Tracking:         order.NewTrackingGenerator(cfg.Checkout.TrackingPrefix),
		TrackingAttempts: cfg.Checkout.TrackingAttempts,
		AdminCode:        cfg.Auth.AdminCode,
		Idempotency:      idempotency,
		Recorder:         m,
	})
	queryHandler := query.NewHandler(st)

	router := api.NewRouter(
		api.NewHandlers(cmdHandler, queryHandler),
		api.NewAuthHandlers(cmdHandler, queryHandler, jwtService),
		jwtService,
		api.RouterOptions{
			Recorder:       m,
			MetricsHandler: m.Handler(),
			RequestTimeout: cfg.HTTP.WriteTimeout,
		},
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()
	relay := outbox.NewRelay(st, producer, outbox.Options{
		Interval:  cfg.Outbox.Interval,
		BatchSize: cfg.Outbox.BatchSize,
		Recorder:  m,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[API] Server started on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return relay.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("[API] Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("[API] %v", err)
	}
	log.Println("[API] Server exited properly")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Println("[API] Using in-memory store; data is lost on exit")
		return store.NewMemoryStore(cfg.Checkout.LockTimeout), nil
	}

	db, err := store.ConnectPostgres(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	pg := store.NewPostgresStore(db, store.PostgresOptions{
		LockTimeout: cfg.Checkout.LockTimeout,
		TxRetries:   cfg.Database.TxRetries,
	})
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	log.Println("[API] Connected to PostgreSQL")
	return pg, nil
}

func openIdempotency(ctx context.Context, cfg config.Config) (command.IdempotencyStore, func()) {
	if cfg.Redis.Addr == "" {
		log.Println("[API] Redis not configured; idempotency keys kept in memory")
		return cache.NewMemoryIdempotencyStore(cfg.Redis.TTL), func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("[API] Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
	}
	log.Printf("[API] Connected to Redis at %s", cfg.Redis.Addr)
	return cache.NewRedisIdempotencyStore(rdb, cfg.Redis.TTL), func() { _ = rdb.Close() }
}
