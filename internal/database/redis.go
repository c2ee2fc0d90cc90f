package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pageza/clientpulse/backend/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a new Redis client. It returns (nil, nil) when no
// redis endpoint is configured; callers treat a nil client as "no locking".
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.RedisConfigured() {
		log.Printf("Redis not configured, job locks and rate limits disabled")
		return nil, nil
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Use Redis URL if provided (for production deployments)
	if cfg.RedisURL != "" {
		parsedOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts = parsedOpts
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("Successfully connected to Redis at %s", opts.Addr)
	return client, nil
}
