package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/rtlmb/member-sync/internal/api"
	"github.com/rtlmb/member-sync/internal/config"
	"github.com/rtlmb/member-sync/internal/mailchimp"
	"github.com/rtlmb/member-sync/internal/repository/postgres"
	syncsvc "github.com/rtlmb/member-sync/internal/service/sync"
	"github.com/rtlmb/member-sync/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database: audit records and the consent ledger.
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(3)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database unreachable: %v", err)
	}
	pingCancel()
	log.Println("Database connected")

	// Redis backs the rate limiter. Optional: without it the limiter
	// fails open and every request is allowed.
	var limiter *worker.RateLimiter
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			opts = &redis.Options{Addr: cfg.Redis.URL}
		}
		redisClient := redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed: %v (rate limiting disabled)", err)
			redisClient.Close()
		} else {
			limiter = worker.NewRateLimiter(redisClient)
			log.Println("Redis connected (rate limiting enabled)")
		}
		pingCancel()
	} else {
		log.Println("Redis not configured (rate limiting disabled)")
	}

	// Remote contact store client. Pre-flight the credentials so a bad
	// API key surfaces at startup, not on the first import.
	chimp := mailchimp.NewClient(cfg.Mailchimp)
	pingCtx, pingCancel = context.WithTimeout(ctx, 10*time.Second)
	if err := chimp.Ping(pingCtx); err != nil {
		log.Printf("Warning: Mailchimp pre-flight failed: %v", err)
	} else {
		log.Printf("Mailchimp audience %s reachable", cfg.Mailchimp.AudienceID)
	}
	pingCancel()

	svc := syncsvc.NewService(
		postgres.NewImportRunRepo(db),
		postgres.NewConsentRepo(db),
		chimp,
		syncsvc.Options{
			Workers:       cfg.Import.Workers,
			PolicyVersion: cfg.Consent.PolicyVersion,
		},
	)

	server := api.NewServer(*cfg, svc, limiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}

	db.Close()
	log.Println("Server stopped")
}
