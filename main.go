package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procounsellor/config"
	"procounsellor/cron"
	"procounsellor/database"
	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/handlers"
	"procounsellor/middleware"
	"procounsellor/routes"
	"procounsellor/services/appointment"
	"procounsellor/services/tasks"
	"procounsellor/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// openStore constructs the single store handle for the configured backend.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (appointmentRepo.Store, utils.HealthCheck, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, err := database.ConnectMongo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to MongoDB", zap.String("database", cfg.DatabaseName))
		ping := func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return appointmentRepo.NewMongoStore(client, cfg.DatabaseName, logger), ping, nil

	case config.BackendFirestore:
		client, err := utils.InitFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to Firestore", zap.String("project", cfg.FirebaseProjectID))
		ping := func(ctx context.Context) error {
			_, err := client.Collection(appointmentRepo.CounsellorsCollection).Limit(1).Documents(ctx).GetAll()
			return err
		}
		return appointmentRepo.NewFirestoreStore(client, logger), ping, nil

	case config.BackendPostgres:
		db, err := database.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store := appointmentRepo.NewPostgresStore(db, logger)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, nil, err
		}
		logger.Info("connected to PostgreSQL")
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return store, sqlDB.PingContext, nil

	default:
		logger.Warn("using in-memory appointment store; data is lost on restart")
		return appointmentRepo.NewMemoryStore(), nil, nil
	}
}

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.InitializeLogger(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	utils.SetJWTSecret(cfg.JWTSecret)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	store, storePing, err := openStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("main: failed to open appointment store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}

	location, err := cfg.BookingLocation()
	if err != nil {
		logger.Fatal("main: invalid booking timezone", zap.Error(err))
	}

	svc := &appointment.DefaultAppointmentService{
		Store:  store,
		Logger: logger.Named("appointment"),
		Config: appointment.EngineConfig{
			MaxAttempts: cfg.BookingTxnMaxAttempts,
			TxnTimeout:  cfg.BookingTxnTimeout,
			Backoff:     cfg.BookingTxnBackoff,
			Location:    location,
		},
	}

	checks := map[string]utils.HealthCheck{}
	if storePing != nil {
		checks["store"] = storePing
	}

	// Redis backs the idempotency cache and the expiry queue. Both are optional.
	var (
		cacheClient *redis.Client
		queueClient *asynq.Client
		worker      *cron.ExpiryWorker
	)
	if cfg.RedisAddr != "" {
		cacheClient, err = utils.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisCacheDB)
		if err != nil {
			logger.Warn("main: Redis unavailable, idempotency cache and expiry disabled", zap.Error(err))
		} else {
			svc.Idempotency = appointment.NewRedisIdempotencyCache(cacheClient, cfg.IdempotencyTTL, logger.Named("idempotency"))
			checks["redis"] = func(ctx context.Context) error { return cacheClient.Ping(ctx).Err() }

			if cfg.PendingExpiryEnabled {
				redisOpts := asynq.RedisClientOpt{
					Addr:     cfg.RedisAddr,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisQueueDB,
				}
				queueClient = asynq.NewClient(redisOpts)
				svc.Expiry = tasks.NewExpiryScheduler(queueClient)
				worker = cron.NewExpiryWorker(redisOpts, svc, logger.Named("expiry"))
				worker.Start()
			}
		}
	}

	monitor := utils.NewHealthMonitor(checks)
	monitor.Start(rootCtx, time.Minute)

	appointmentHandler := handlers.NewAppointmentHandler(svc, logger.Named("http"))
	handlerBundle := handlers.NewHandlerBundle(appointmentHandler, handlers.HealthHandler(monitor))

	router := gin.New()
	router.Use(utils.ErrorHandler(logger))
	router.Use(handlers.RequestLogger(logger.Named("http")))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin, logger))
	routes.RegisterRoutes(router, handlerBundle, cfg.AllowedOrigins(), middleware.JWTAuthUserMiddleware(logger))

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("backend", cfg.StoreBackend))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("main: server failed to start", zap.Error(err))
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	stop()

	if worker != nil {
		worker.Shutdown()
	}
	if queueClient != nil {
		_ = queueClient.Close()
	}
	if cacheClient != nil {
		_ = cacheClient.Close()
	}
	if err := store.Close(ctx); err != nil {
		logger.Warn("main: failed to close store", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
