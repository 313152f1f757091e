package main

import (
	"context"
	"log"
	"time"

	"cgt-timeline-backend/internal/cache"
	"cgt-timeline-backend/internal/config"
	"cgt-timeline-backend/internal/database"
	"cgt-timeline-backend/internal/server"
)

func main() {
	cfg := config.Load()

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		log.Fatalf("❌ Database ping failed: %v", err)
	}
	log.Printf("✅ Database connected successfully")

	redis, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	defer redis.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redis.Health(ctx); err != nil {
		log.Fatalf("❌ Redis ping failed: %v", err)
	}
	log.Printf("✅ Redis connected successfully")

	srv := server.New(cfg, db, redis)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
