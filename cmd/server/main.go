package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-sync/config"
	"live-sync/internal/api"
	"live-sync/internal/broker"
	"live-sync/internal/engine"
	"live-sync/internal/feed"
	"live-sync/internal/notify"
	"live-sync/internal/redisclient"
	"live-sync/internal/store"
	"live-sync/internal/util"
	"live-sync/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting live-sync service")

	tp, err := util.InitTracer("live-sync", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	subscriber := feed.NewSubscriber(redisClient)
	defer subscriber.CloseAll()

	loader := engine.NewLoader(db, redisClient)
	opener := func(ctx context.Context, scopeKey string) engine.Stream {
		return subscriber.Subscribe(ctx, scopeKey)
	}
	manager := engine.NewManager(cfg.Business, loader, opener, notify.NewLogSink())
	defer manager.Shutdown()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	cdcConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicChanges, cfg.Kafka.ConsumerGroup)
	relay := worker.NewChangeRelay(cdcConsumer, redisClient)
	go func() {
		if err := relay.Start(workerCtx); err != nil {
			log.Printf("Change relay error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(manager)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	relay.Stop()
	manager.Shutdown()

	log.Println("Server exited")
}
