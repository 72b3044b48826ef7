package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/events"
	"github.com/jayymeson/loomi-test/internal/gateway/cache"
	"github.com/jayymeson/loomi-test/internal/gateway/consumer"
	"github.com/jayymeson/loomi-test/internal/gateway/handler"
	"github.com/jayymeson/loomi-test/internal/gateway/upstream"
	"github.com/jayymeson/loomi-test/internal/middleware"
	"github.com/jayymeson/loomi-test/internal/redisclient"
)

func main() {
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true
	middleware.MustInitJWTSecret()

	identityURL := getEnv("IDENTITY_SERVICE_URL", "http://localhost:8082")
	ledgerURL := getEnv("LEDGER_SERVICE_URL", "http://localhost:8084")

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redis, err := redisclient.Connect(redisAddr, "", 0)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	customerCache := cache.NewCustomerCache(4096, 30*time.Minute)
	customerConsumer := consumer.NewCustomerEventsConsumer(customerCache)
	customerHandler := handler.NewCustomerHandler(customerCache)

	identity := upstream.NewClient(identityURL)
	ledger := upstream.NewClient(ledgerURL)

	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "api-gateway"})
	})

	// User routes (registration is public)
	router.POST("/v1/users", identity.Forward())
	router.GET("/v1/users/:userId", middleware.AuthMiddleware(), identity.Forward())
	router.PATCH("/v1/users/:userId", middleware.AuthMiddleware(), identity.Forward())
	router.POST("/v1/users/:userId/deposit", middleware.AuthMiddleware(), identity.Forward())

	// Transaction routes
	router.POST("/v1/transactions", middleware.AuthMiddleware(), ledger.Forward())
	router.GET("/v1/transactions/:id", middleware.AuthMiddleware(), ledger.Forward())
	router.GET("/v1/transactions/user/:userId", middleware.AuthMiddleware(), ledger.Forward())
	router.GET("/v1/transactions/recent/:days", middleware.AuthMiddleware(), ledger.Forward())
	router.PATCH("/v1/transactions/:id/cancel", middleware.AuthMiddleware(), ledger.Forward())

	// Event-fed customer projection
	authed := router.Group("", middleware.AuthMiddleware())
	customerHandler.Register(authed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerName := getEnv("CONSUMER_NAME", "gateway-consumer-1")
	for _, sub := range events.NewSubscribers(redis, consumerName, customerConsumer.Bindings()) {
		go func(s *events.Subscriber) {
			if err := s.Start(ctx); err != nil {
				log.Printf("Subscriber stopped: %v", err)
			}
		}(sub)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	port := getEnv("PORT", "8080")
	log.Printf("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
