package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/tradelab/trading-dashboard/internal/agent"
	"github.com/tradelab/trading-dashboard/internal/api"
	"github.com/tradelab/trading-dashboard/internal/config"
	"github.com/tradelab/trading-dashboard/internal/database"
	"github.com/tradelab/trading-dashboard/internal/exchange"
	"github.com/tradelab/trading-dashboard/internal/kafka"
	"github.com/tradelab/trading-dashboard/internal/llm"
	"github.com/tradelab/trading-dashboard/internal/redis"
)

func main() {
	// Load .env if present, real env vars win
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}
	cfg := config.Load()

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	// Connect to Redis
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v (continuing without cache)", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Connected to Redis cache")
	}

	// Exchange market data client. Public endpoints work without credentials.
	exchangeClient := exchange.New(cfg.Binance)
	log.Printf("Exchange client initialized (testnet: %v)", cfg.Binance.UseTestnet)

	// Kafka producer for decision and trade events
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DecisionsTopic, cfg.Kafka.TradesTopic)
	defer producer.Close()
	log.Printf("Kafka producer initialized (brokers: %v)", cfg.Kafka.Brokers)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume account snapshots published by external executors
	snapshotsConsumer := kafka.NewSnapshotsConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.SnapshotsTopic,
		cfg.Kafka.ConsumerGroup,
		db,
	)
	go func() {
		log.Printf("Starting Kafka snapshots consumer for topic: %s (group: %s-snapshots)",
			cfg.Kafka.SnapshotsTopic, cfg.Kafka.ConsumerGroup)
		if err := snapshotsConsumer.Start(ctx); err != nil {
			log.Printf("Kafka snapshots consumer error: %v", err)
		}
	}()

	// Background agent manager
	llmClient := llm.New(cfg.LLM)
	if cfg.LLM.APIKey == "" {
		log.Println("Warning: no LLM API key configured, decision cycles will fail")
	}
	runner := agent.NewRunner(db, exchangeClient, llmClient, producer, cfg.Agent.TakerFeeRate)
	agents := agent.NewManager(runner, db)

	// Set up HTTP handler and routes
	handler := api.NewHandler(db, exchangeClient, agents, redisClient, cfg, true)
	router := api.SetupRoutes(handler)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// run-once cycles block on the model reply, which can take minutes
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop background agents before the consumers and server go away
	agents.StopAll()

	// Cancel context to stop the Kafka consumer
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := snapshotsConsumer.Close(); err != nil {
		log.Printf("Error closing Kafka snapshots consumer: %v", err)
	}

	log.Println("Server stopped")
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://./db/migrations", databaseURL)
	if err != nil {
		return err
	}

	err = m.Up()
	if err == migrate.ErrNoChange {
		log.Println("No migrations to apply; database is up to date.")
		return nil
	}
	return err
}
