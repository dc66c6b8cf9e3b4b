package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/moverap/backend/internal/background"
	"github.com/moverap/backend/internal/config"
	"github.com/moverap/backend/internal/database"
	"github.com/moverap/backend/internal/handlers"
	"github.com/moverap/backend/internal/lockout"
	"github.com/moverap/backend/internal/metrics"
	middlewareCustom "github.com/moverap/backend/internal/middleware"
	"github.com/moverap/backend/internal/repositories"
	"github.com/moverap/backend/internal/routes"
	"github.com/moverap/backend/internal/services"
	"github.com/moverap/backend/internal/storage"
	pkgauth "github.com/moverap/backend/pkg/auth"
	pkghttp "github.com/moverap/backend/pkg/http"
	pkglogger "github.com/moverap/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const uploadRequestsPerMinute = 30

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("lockout_store", cfg.Auth.LockoutStore),
		slog.String("storage_backend", cfg.Storage.Backend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	healthChecks := map[string]handlers.HealthChecker{"database": db}

	// Attempt store for the login guard
	var (
		attempts lockout.Store
		sweeper  background.Sweeper
	)
	policy := lockout.DefaultPolicy()
	policy.IdleTTL = cfg.Auth.LockoutIdleTTL

	switch cfg.Auth.LockoutStore {
	case config.LockoutStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		store := lockout.NewRedisStore(client, policy)
		if err := store.HealthCheck(ctx); err != nil {
			return err
		}
		attempts = store
		healthChecks["redis"] = store
	default:
		store := lockout.NewMemoryStore(policy, cfg.Auth.LockoutShards)
		attempts = store
		sweeper = store
		logger.Info("using in-memory attempt store; lockouts are per instance and cleared on restart")
	}

	// Image storage
	images, err := newImageStore(ctx, &cfg.Storage)
	if err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	userPageRepo := repositories.NewUserPageRepository(db)
	uploadRepo := repositories.NewUploadRepository(db)

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	hasher := pkgauth.NewBcryptHasher(cfg.Auth.BcryptCost)

	authService := services.NewAuthService(userRepo, hasher, attempts, logger, auditLogger)
	authService.AddLockoutObserver(metrics.LockoutObserver{})

	uploadService := services.NewUploadService(images, uploadRepo, logger)
	userPageService := services.NewUserPageService(userPageRepo, uploadService, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: pkghttp.ParseTrustedProxies(cfg.Server.TrustedProxies)}

	authRateLimit := middlewareCustom.DefaultAuthRateLimit()
	authRateLimit.RequestsPerMinute = cfg.Auth.RequestsPerMinute
	authRateLimit.IPConfig = ipConfig

	deps := routes.Dependencies{
		Authenticator:   authService,
		AuthHandler:     handlers.NewAuthHandler(authService, logger),
		UserPageHandler: handlers.NewUserPageHandler(userPageService, logger),
		UploadHandler:   handlers.NewUploadHandler(uploadService, logger),
		HealthHandler:   handlers.NewHealthHandler(healthChecks, logger),
		AuthRateLimit:   authRateLimit,
		UploadRateLimit: middlewareCustom.RateLimitConfig{RequestsPerMinute: uploadRequestsPerMinute, IPConfig: ipConfig},
		Logger:          logger,
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(metrics.Middleware)
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{
		Env:            cfg.Server.Env,
		PublicPrefixes: []string{"/uploads/"},
	}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, deps)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupManager := background.NewCleanupManager(sweeper, func() { metrics.UpdateDBStats(db.Stats()) }, logger, cfg.Auth.LockoutSweepInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cleanupManager.Start(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newImageStore builds the configured upload backend
func newImageStore(ctx context.Context, cfg *config.StorageConfig) (services.ImageStore, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3Options{
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(client, cfg.S3Bucket, "uploads/"), nil
	default:
		return storage.NewLocalStore(cfg.UploadDir)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
