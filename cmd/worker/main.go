package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/arkivbox/retention/internal/alerting"
	"github.com/arkivbox/retention/internal/category"
	"github.com/arkivbox/retention/internal/config"
	"github.com/arkivbox/retention/internal/hold"
	"github.com/arkivbox/retention/internal/lifecycle"
	"github.com/arkivbox/retention/internal/pkg/distlock"
	"github.com/arkivbox/retention/internal/record"
	"github.com/arkivbox/retention/internal/scheduler"
)

func main() {
	log.Println("Starting Arkivbox retention worker...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable (%v), falling back to advisory locks", err)
			redisClient = nil
		} else {
			log.Println("Connected to Redis")
		}
	}

	catStore := category.NewStore(db)
	records := record.NewStore(db)
	holds := hold.NewManager(db)
	alertStore := alerting.NewStore(db)

	engine := lifecycle.NewEngine(records, catStore, holds, cfg.Sweep.BatchSize)

	renderer := alerting.NewTemplateRenderer(cfg.Alerting.DashboardBaseURL)
	var dispatcher alerting.Dispatcher
	if cfg.SES.Enabled {
		sesDispatcher, err := alerting.NewSESDispatcher(context.Background(), cfg.SES, renderer)
		if err != nil {
			log.Fatalf("Failed to initialize SES dispatcher: %v", err)
		}
		dispatcher = sesDispatcher
		log.Println("SES dispatcher initialized")
	} else {
		dispatcher = alerting.NewLogDispatcher(renderer)
		log.Println("SES disabled, notifications go to the log")
	}

	resolver := &alerting.ConfigResolver{AdminEmail: cfg.Alerting.AdminEmail}
	processor := alerting.NewProcessor(records, catStore, holds, alertStore, alertStore,
		resolver, dispatcher, cfg.Sweep.BatchSize)

	lockTTL := time.Duration(cfg.Sweep.LockTTLSecs) * time.Second
	locks := func(name string) distlock.Lock {
		return distlock.New(redisClient, db, name, lockTTL)
	}

	sched := scheduler.New(scheduler.Config{
		TransitionSchedule: cfg.Sweep.TransitionSchedule,
		AlertSchedule:      cfg.Sweep.AlertSchedule,
		RunOnStart:         cfg.Sweep.RunOnStart,
	}, engine, processor, scheduler.NewRunStore(db), locks)

	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Worker stopped")
}
