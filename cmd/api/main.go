package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pageza/clientpulse/backend/config"
	"github.com/pageza/clientpulse/backend/internal/api"
	"github.com/pageza/clientpulse/backend/internal/database"
	"github.com/pageza/clientpulse/backend/internal/middleware"
	"github.com/pageza/clientpulse/backend/internal/router"
	"github.com/pageza/clientpulse/backend/internal/scheduler"
	"github.com/pageza/clientpulse/backend/internal/server"
	"github.com/pageza/clientpulse/backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := database.RunMigrations(db, migrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis is optional: without it jobs run unlocked and submissions are not rate limited
	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store service.IObjectStore
	if cfg.S3BucketName != "" {
		s3Cfg, err := config.NewS3Config(ctx, cfg.S3BucketName, cfg.AWSRegion)
		if err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
		store = s3Cfg
	}

	// Initialize services
	notifier := service.NewNotificationService(cfg)
	generator := service.NewGeneratorService(db)
	lifecycle := service.NewLifecycleService(db, notifier, service.LifecycleOptions{
		Concurrency: cfg.NotifyConcurrency,
		RatePerSec:  cfg.NotifyRatePerSec,
		FrontendURL: cfg.FrontendURL,
	})
	jobs := service.NewJobRunner(generator, lifecycle, service.NewJobLocker(redisClient))

	svc := &api.Services{
		Tokens:      service.NewTokenService(cfg.JWTSecret),
		Users:       service.NewUserService(db),
		Catalog:     service.NewCatalogService(db),
		Generator:   generator,
		Assignments: service.NewAssignmentService(db),
		Lifecycle:   lifecycle,
		Responses:   service.NewResponseService(db),
		Summaries:   service.NewSummaryService(db, store),
		Jobs:        jobs,
	}

	engine := router.SetupRouter(db, svc, api.Options{
		CronSecret:        cfg.CronSecret,
		SubmissionLimiter: middleware.NewSubmissionRateLimiter(redisClient),
	}, cfg.FrontendURL)

	if cfg.SchedulerEnabled {
		sched, err := scheduler.New(jobs, scheduler.Schedule{Daily: cfg.DailyCron, Weekly: cfg.WeeklyCron})
		if err != nil {
			log.Fatalf("Failed to configure scheduler: %v", err)
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.Printf("Scheduler did not stop cleanly: %v", err)
			}
		}()
	}

	// Create and start server
	srv := server.New(cfg, engine)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
