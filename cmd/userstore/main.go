package main

// @title           Userstore API
// @version         1.0
// @description     Redis-backed user record store with CRUD and name search.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Shared-secret bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	redisadapter "github.com/custodia-labs/userstore/internal/adapters/driven/redis"
	"github.com/custodia-labs/userstore/internal/adapters/driving/http"
	"github.com/custodia-labs/userstore/internal/core/services"
)

var version = "dev"

func main() {
	logger := slog.Default()

	// Configuration from environment
	port := getEnvInt("PORT", 8080)
	redisURL := getEnv("REDIS_URL", "redis://localhost:6379/0")
	authToken := getEnv("API_TOKEN", "development-token-change-in-production")
	rateLimit := getEnvInt("RATE_LIMIT", 100)
	rateWindow := time.Duration(getEnvInt("RATE_WINDOW_SEC", 60)) * time.Second

	log.Printf("userstore %s starting", version)

	// ===== Initialize Redis =====
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redisadapter.Connect(ctx, redisadapter.DefaultConfig(redisURL))
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer client.Close()
	log.Println("Redis connected")

	// ===== Driven adapters (infrastructure) =====
	store := redisadapter.NewRecordStore(client)
	limiter := redisadapter.NewRateLimiter(client, int64(rateLimit), rateWindow)

	// ===== Services (core business logic) =====
	userService := services.NewUserService(store, logger)

	// ===== HTTP server =====
	cfg := http.Config{
		Host:      "0.0.0.0",
		Port:      port,
		AuthToken: authToken,
	}
	server := http.NewServer(cfg, userService, limiter, store, logger)

	log.Printf("API server starting on :%d (rate limit %d/%s)", port, rateLimit, rateWindow)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
