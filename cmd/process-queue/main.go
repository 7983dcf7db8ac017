package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/app"
	job "github.com/maheshrc27/postflow-publisher/internal/jobs"
	"github.com/redis/go-redis/v9"
)

// process-queue publishes every due queue item once and exits. With -once=false
// it keeps ticking at -interval until interrupted.
func main() {
	once := flag.Bool("once", true, "process the due queue once and exit")
	interval := flag.Duration("interval", time.Minute, "tick interval when -once=false")
	report := flag.Bool("report", false, "print the tick report as JSON")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := config.LoadConfig()
	config.SetupLogger(cfg)

	os.Exit(run(cfg, *once, *interval, *report))
}

func run(cfg *config.Config, once bool, interval time.Duration, printReport bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()

	var lock job.Locker
	if cfg.RedisURI != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		defer rdb.Close()
		lock = job.NewTickLock(rdb, cfg.TickLockTTL)
	}

	services, err := app.New(ctx, cfg, db, nil, lock)
	if err != nil {
		slog.Error("Failed to wire services", "error", err)
		return 1
	}

	for {
		rep, err := services.Tick.Tick(ctx, time.Now())
		if err != nil {
			slog.Error("processing the queue failed", "error", err)
			return 1
		}
		if printReport {
			json.NewEncoder(os.Stdout).Encode(rep)
		}
		if once {
			return 0
		}

		select {
		case <-ctx.Done():
			return 0
		case <-time.After(interval):
		}
	}
}
