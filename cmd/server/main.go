package main

import (
	"database/sql"
	"fmt"
	"log"
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
	"github.com/robfig/cron"
	config "github.com/wyatts97/schedx/configs"
	"github.com/wyatts97/schedx/internal/api/handlers"
	"github.com/wyatts97/schedx/internal/api/middleware"
	"github.com/wyatts97/schedx/internal/cache"
	job "github.com/wyatts97/schedx/internal/jobs"
	"github.com/wyatts97/schedx/internal/notify"
	"github.com/wyatts97/schedx/internal/queue"
	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	tweetRepo := repository.NewTweetRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	tweetMediaRepo := repository.NewTweetMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	queueSettingsRepo := repository.NewQueueSettingsRepository(db)
	retentionRepo := repository.NewRetentionSettingsRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	tokenService := service.NewTokenService(*cfg, socialAccountRepo)
	twitterService := service.NewTwitterService(*cfg)
	r2Service := service.NewR2Service(*cfg)

	analyticsCache := cache.New(cfg.RedisURI)
	dispatcher := notify.NewDispatcher(client)

	queueManager := queue.NewManager(db, tweetRepo, queueSettingsRepo, cfg.PromoteHorizonDays)

	tweetJob := job.NewTweetSchedulerJob(tweetRepo, tweetMediaRepo, mediaAssetRepo, socialAccountRepo, tokenService, twitterService, r2Service, dispatcher, analyticsCache)
	threadJob := job.NewThreadSchedulerJob(threadRepo, mediaAssetRepo, socialAccountRepo, tokenService, twitterService, r2Service, dispatcher, analyticsCache, time.Duration(cfg.ThreadSpacingSecs)*time.Second)
	promoteJob := job.NewQueuePromoteJob(queueManager)
	syncJob := job.NewEngagementSyncJob(tweetRepo, socialAccountRepo, analyticsRepo, tokenService, twitterService, analyticsCache, cfg.EngagementRunCap)
	cleanupJob := job.NewRetentionCleanupJob(retentionRepo, analyticsRepo)
	refreshJob := job.NewTokenRefreshJob(socialAccountRepo, tokenService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, userRepo)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	queueH := handlers.NewQueueHandler(queueManager, tweetRepo, socialAccountRepo)
	api.Get("/queue", queueH.ListQueue)
	api.Post("/queue/add", queueH.AddToQueue)
	api.Post("/queue/reorder", queueH.ReorderQueue)
	api.Post("/queue/move", queueH.MoveInQueue)
	api.Post("/queue/shuffle", queueH.ShuffleQueue)

	settingsH := handlers.NewSettingsHandler(queueSettingsRepo, retentionRepo, socialAccountRepo)
	api.Get("/settings/queue", settingsH.GetQueueSettings)
	api.Post("/settings/queue", settingsH.UpdateQueueSettings)
	api.Get("/settings/retention", settingsH.GetRetentionSettings)
	api.Post("/settings/retention", settingsH.UpdateRetentionSettings)

	jobsH := handlers.NewJobsHandler(tweetJob, threadJob, promoteJob, syncJob, cleanupJob)
	api.Post("/jobs/tweets/run", jobsH.RunTweetScheduler)
	api.Post("/jobs/threads/run", jobsH.RunThreadScheduler)
	api.Post("/jobs/promote/run", jobsH.RunQueuePromotion)
	api.Post("/jobs/engagement/run", jobsH.RunEngagementSync)
	api.Post("/jobs/cleanup/run", jobsH.RunRetentionCleanup)

	notificationH := handlers.NewNotificationHandler(notificationRepo)
	api.Get("/notifications", notificationH.ListNotifications)

	// cron jobs
	c := cron.New()
	c.AddFunc(cfg.PollSpec, tweetJob.Run)
	c.AddFunc(cfg.PollSpec, threadJob.Run)
	c.AddFunc(cfg.PollSpec, promoteJob.Run)
	c.AddFunc(cfg.EngagementSpec, syncJob.Run)
	c.AddFunc(cfg.CleanupSpec, cleanupJob.Run)
	c.AddFunc(cfg.TokenRefreshSpec, refreshJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		worker := notify.NewWorker(userRepo, notificationRepo)
		mux := asynq.NewServeMux()
		mux.HandleFunc(notify.TaskTypeNotify, worker.HandleNotifyTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
