package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/example/ec-checkout/internal/config"
	"github.com/example/ec-checkout/internal/email"
	"github.com/example/ec-checkout/internal/infrastructure/kafka"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/logging"
	"github.com/example/ec-checkout/internal/notification"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Notifier] Invalid configuration: %v", err)
	}
	logCloser := logging.Setup(cfg.Log.File)
	defer logCloser.Close()

	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("[Notifier] The notifier reads customers from PostgreSQL; database.driver is %q", cfg.Database.Driver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] EC Shop - Email Notification Service")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", cfg.Kafka.Brokers)
	log.Printf("[Notifier] Topic: %s", cfg.Kafka.Topic)
	log.Printf("[Notifier] Group: %s", cfg.Kafka.GroupID)
	log.Printf("[Notifier] SMTP: %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)

	db, err := store.ConnectPostgres(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		log.Fatalf("[Notifier] Failed to connect to PostgreSQL: %v", err)
	}
	readStore := store.NewPostgresStore(db, store.PostgresOptions{})
	defer readStore.Close()
	log.Println("[Notifier] Connected to PostgreSQL")

	emailSvc := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	handler := notification.NewHandler(emailSvc, readStore, nil)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	defer consumer.Close()

	log.Println("[Notifier] Starting event consumer...")
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Printf("[Notifier] Consumer error: %v", err)
	}
	log.Println("[Notifier] Shutting down...")
}
