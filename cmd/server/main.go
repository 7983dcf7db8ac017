package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/api"
	"github.com/maheshrc27/postflow-publisher/internal/api/handlers"
	"github.com/maheshrc27/postflow-publisher/internal/api/middleware"
	"github.com/maheshrc27/postflow-publisher/internal/app"
	job "github.com/maheshrc27/postflow-publisher/internal/jobs"
	"github.com/maheshrc27/postflow-publisher/internal/queue"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Failed to load environment variables", "error", err)
	}

	cfg := config.LoadConfig()
	config.SetupLogger(cfg)

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		slog.Error("Database is unreachable", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	ctx := context.Background()
	asyncEvents := func(ws service.WebhookService) service.EventEmitter {
		return queue.NewAsyncEmitter(client, ws)
	}
	services, err := app.New(ctx, cfg, db, asyncEvents, job.NewTickLock(rdb, cfg.TickLockTTL))
	if err != nil {
		slog.Error("Failed to wire services", "error", err)
		os.Exit(1)
	}

	fiberApp := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error(err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	fiberApp.Use(logger.New())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	api.RegisterRoutes(fiberApp, authMiddleware.AuthMiddleware(), api.Handlers{
		Queue:     handlers.NewQueueHandler(services.Queue),
		Schedule:  handlers.NewScheduleHandler(services.Schedule),
		Recycling: handlers.NewRecyclingHandler(services.Recycling),
		Webhooks:  handlers.NewWebhookHandler(services.Webhooks),
	})

	// cron jobs
	c := cron.New()
	if err := c.AddFunc(cfg.TickSpec, func() { runTick(services.Tick) }); err != nil {
		slog.Error("Invalid tick schedule", "spec", cfg.TickSpec, "error", err)
		os.Exit(1)
	}
	c.AddFunc("@every 00h10m00s", services.TokenRefresh.RefreshTokens)
	c.Start()
	defer c.Stop()

	worker := queue.NewWorker(services.Webhooks)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.Webhooks.Concurrency,
	})
	go func() {
		mux := asynq.NewServeMux()
		worker.Register(mux)

		slog.Info("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			slog.Error("Could not start Asynq server", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("Server is running", "port", cfg.Port)

	gracefulShutdown(fiberApp, server)
}

func runTick(driver *job.TickDriver) {
	report, err := driver.Tick(context.Background(), time.Now())
	if err != nil {
		slog.Error("tick failed", "error", err)
		return
	}
	if report.Skipped {
		return
	}
	published, failed := report.Counts()
	slog.Info("tick report", "run_id", report.RunID, "published", published, "failed", failed, "recycled", len(report.Recycled))
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(fiberApp *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("Shutting down server...")

	if err := fiberApp.Shutdown(); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}
	server.Shutdown()

	slog.Info("Server shutdown complete.")
}
