package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/umassos/openwhisk/handlers"
	"github.com/umassos/openwhisk/middleware"
	"github.com/umassos/openwhisk/services"
)

func main() {
	// Config
	invokerID := getEnv("INVOKER_ID", "invoker0")
	serverPort := getEnv("SERVER_PORT", "8080")
	systemNamespace := getEnv("SYSTEM_NAMESPACE", "whisk.system")
	feedCredits, _ := strconv.Atoi(getEnv("FEED_CREDITS", "16"))
	stageTimeoutMs, _ := strconv.Atoi(getEnv("STAGE_TIMEOUT_MS", "30000"))

	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))

	// PostgreSQL Config
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	dbUser := getEnv("DB_USER", "whisk")
	dbPassword := getEnv("DB_PASSWORD", "whisk")
	dbName := getEnv("DB_NAME", "whisk")

	// Artifact storage Config
	storageType := getEnv("STORAGE_TYPE", "local")
	storagePath := getEnv("STORAGE_PATH", "/data/artifacts")

	rootLogger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: invokerID,
	})

	// Initialize services
	dbService, err := services.NewDBService(dbHost, dbPort, dbUser, dbPassword, dbName)
	if err != nil {
		rootLogger.Fatal("failed to connect to database", "err", err)
	}
	defer dbService.Close()

	if err := dbService.InitSchema(context.Background()); err != nil {
		rootLogger.Fatal("failed to initialize database schema", "err", err)
	}
	rootLogger.Info("database schema initialized", "host", dbHost, "db", dbName)

	storage, err := services.NewArtifactStorage(storageType, storagePath)
	if err != nil {
		rootLogger.Fatal("failed to initialize artifact storage", "err", err)
	}
	rootLogger.Info("artifact storage initialized", "type", storageType, "path", storagePath)

	redisService := services.NewRedisService(redisHost, redisPort)
	if err := redisService.Ping(context.Background()); err != nil {
		rootLogger.Fatal("failed to connect to redis", "err", err)
	}

	catalog := services.NewCatalogService(dbService, storage, rootLogger.WithPrefix(invokerID+"/catalog"))

	blacklist := services.NewBlacklistService(dbService, 30*time.Second, rootLogger.WithPrefix(invokerID+"/blacklist"))
	if err := blacklist.Refresh(context.Background()); err != nil {
		rootLogger.Fatal("failed to load namespace blacklist", "err", err)
	}
	blacklist.Start()
	defer blacklist.Stop()

	pool := services.NewPoolService(redisService, invokerID)
	ack := services.NewAckService(redisService)
	pending := services.NewPendingRegistry()

	var dispatch *services.DispatchService
	feed := services.NewFeedRunner(
		redisService,
		services.ActivationQueuePrefix+invokerID,
		feedCredits,
		func(ctx context.Context, payload []byte) error {
			return dispatch.HandleMessage(ctx, payload)
		},
		rootLogger.WithPrefix(invokerID+"/feed"),
	)

	reporter := services.NewCompletionReporter(feed, ack, dbService, rootLogger.WithPrefix(invokerID+"/reporter"))
	dispatch = services.NewDispatchService(
		blacklist, catalog, pool, pending, reporter,
		systemNamespace, time.Duration(stageTimeoutMs)*time.Millisecond,
		rootLogger.WithPrefix(invokerID+"/dispatch"),
	)

	completions := services.NewCompletionRunner(
		redisService,
		services.ResultQueuePrefix+invokerID,
		pending, reporter,
		rootLogger.WithPrefix(invokerID+"/completions"),
	)

	feed.Start()
	defer feed.Stop()
	completions.Start()
	defer completions.Stop()

	// Initialize handlers
	activationHandler := handlers.NewActivationHandler(dbService)
	blacklistHandler := handlers.NewBlacklistHandler(blacklist)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName: "whisk-invoker",
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(middleware.XRayMiddleware(invokerID))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health endpoints
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP", "invoker": invokerID})
	})

	// API routes
	api := app.Group("/api")

	api.Get("/activations", activationHandler.ListActivations)
	api.Get("/activations/:id", activationHandler.GetActivation)
	api.Get("/blacklist", blacklistHandler.ListBlacklist)
	api.Post("/blacklist/:namespace", blacklistHandler.BlockNamespace)
	api.Delete("/blacklist/:namespace", blacklistHandler.UnblockNamespace)

	go func() {
		rootLogger.Info("invoker API starting", "port", serverPort)
		if err := app.Listen(":" + serverPort); err != nil {
			rootLogger.Fatal("server stopped", "err", err)
		}
	}()

	rootLogger.Info("invoker started",
		"queue", services.ActivationQueuePrefix+invokerID,
		"credits", feedCredits,
		"systemNamespace", systemNamespace)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	rootLogger.Info("shutting down")
	app.Shutdown()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
