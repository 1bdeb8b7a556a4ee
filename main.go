package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"huddle/config"
	"huddle/cron"
	"huddle/database"
	candidateRepo "huddle/database/repository/candidate"
	"huddle/handlers"
	"huddle/middleware"
	"huddle/routes"
	"huddle/services/booking"
	"huddle/services/cancellation"
	"huddle/services/convergence"
	ai "huddle/services/intelligence"
	"huddle/services/ledger"
	"huddle/services/matching"
	"huddle/services/tasks"
	"huddle/utils"
)

// candidateStore opens the candidate pool: Mongo when configured (seeded from
// the seed file if present), otherwise the seed file alone.
func candidateStore(ctx context.Context, logger *zap.Logger) (candidateRepo.CandidateRepository, *mongo.Client, error) {
	cfg := config.AppConfig
	if cfg.DatabaseURL == "" {
		seed, err := candidateRepo.LoadSeedFile(cfg.CandidateSeedFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using seed candidate pool", zap.String("file", cfg.CandidateSeedFile), zap.Int("candidates", len(seed.All())))
		return seed, nil, nil
	}

	client, err := database.InitDB(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := candidateRepo.NewMongoCandidateRepo(client.Database(cfg.DatabaseName))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure candidate indexes", zap.Error(err))
	}

	if seed, err := candidateRepo.LoadSeedFile(cfg.CandidateSeedFile); err == nil {
		for _, p := range seed.All() {
			if err := repo.Upsert(ctx, p); err != nil {
				logger.Warn("Failed to seed candidate", zap.String("id", p.ID), zap.Error(err))
			}
		}
	}
	return repo, client, nil
}

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	repo, mongoClient, err := candidateStore(rootCtx, logger)
	if err != nil {
		logger.Fatal("Failed to open candidate pool", zap.Error(err))
	}
	if err := utils.InitCache(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	store := ledger.New()
	supply := &matching.DefaultMatchingService{
		Repo:        repo,
		CacheClient: utils.CacheClient,
		Logger:      logger,
	}

	// Reminders need the async queue, which lives in Redis.
	var (
		reminders   convergence.ReminderScheduler
		queueClient *asynq.Client
		worker      *asynq.Server
	)
	if cfg.RedisAddr != "" {
		redisOpts := asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisReminderQueueDB,
		}
		queueClient = asynq.NewClient(redisOpts)
		reminders = tasks.NewReminderScheduler(queueClient, logger)
		worker = cron.InitReminderWorker(redisOpts, store, logger)
	}

	sim := convergence.NewRandomSimulator(time.Now().UnixNano())
	engine := convergence.NewEngine(store, store, sim, convergence.Options{
		Standard:  cfg.StandardPreset(),
		Backfill:  cfg.BackfillPreset(),
		Clock:     cfg.Clock(),
		Reminders: reminders,
	}, logger)
	runner := convergence.NewRunner(engine, int64(cfg.MaxConcurrentBookings), logger)

	bookingService := &booking.DefaultBookingService{
		Ledger:       store,
		Supply:       supply,
		Loops:        runner,
		Speed:        engine,
		DefaultSpeed: cfg.DefaultSpeedMultiplier,
		Logger:       logger,
	}
	coordinator := cancellation.NewCoordinator(store, supply, runner, sim, cancellation.Options{
		Reschedule: cfg.ReschedulePreset(),
		Clock:      cfg.Clock(),
	}, logger)

	var ctxStore ai.ContextStore = ai.NewMemoryContextStore()
	if utils.ContextClient != nil {
		ctxStore = ai.NewRedisContextStore(utils.ContextClient, time.Duration(cfg.ContextTTLMinutes)*time.Minute)
	}
	var llm ai.TextGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(rootCtx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn("Gemini unavailable, open chat uses canned replies", zap.Error(err))
		} else {
			defer gemini.Close()
			llm = gemini
		}
	}
	aiSvc := ai.NewLocalAIService(ctxStore, bookingService, coordinator, supply, llm, logger)

	utils.StartHealthMonitor(rootCtx, utils.RedisClients(), mongoClient)

	handlerBundle := handlers.NewHandlerBundle(
		&handlers.BookingHandler{BookingSvc: bookingService, Logger: logger},
		&handlers.CancellationHandler{CancelSvc: coordinator, Logger: logger},
		&handlers.AIHandler{AISvc: aiSvc, Logger: logger},
	)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, logger))
	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(ctx); err != nil {
		logger.Warn("Convergence loops did not stop in time", zap.Error(err))
	}
	stop()
	if worker != nil {
		worker.Shutdown()
	}
	if queueClient != nil {
		_ = queueClient.Close()
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(ctx)
	}
	utils.CloseCache()

	logger.Info("Server stopped gracefully")
}
