package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"designhub/internal/api"
	"designhub/internal/api/middleware"
	"designhub/internal/app/service"
	"designhub/internal/common/security"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
	"designhub/internal/platform/cache"
	"designhub/internal/platform/config"
	"designhub/internal/platform/database"
	"designhub/internal/platform/logger"

	"go.uber.org/zap"
)

type repositories struct {
	users     repository.UserRepository
	problems  repository.ProblemRepository
	solutions repository.SolutionRepository
	metadata  repository.MetadataRepository
	saved     repository.SavedProblemRepository
}

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info(ctx, "configuration loaded", zap.String("storage", cfg.StorageDriver))

	// 2. Initialize JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	// 3. Storage
	repos := openRepositories(ctx, cfg)
	defer database.Close()

	// 4. Redis metadata cache; the registry falls back to storage without it.
	var keyCache *cache.MetadataKeyCache
	if err := cache.ConnectRedis(ctx); err != nil {
		logger.Warn(ctx, "redis unavailable, metadata cache disabled", zap.Error(err))
	} else {
		defer cache.CloseRedis()
		keyCache = cache.NewMetadataKeyCache(cache.RDB, cfg.MetadataCacheTTL, 0)
	}

	// 5. Authorization policy
	flow, err := moderation.ParseSolutionFlow(cfg.SolutionReviewFlow)
	if err != nil {
		logger.Fatal(ctx, "invalid solution review flow", zap.Error(err))
	}
	guard := moderation.NewGuard(moderation.Policy{
		SolutionFlow:           flow,
		AllowSelfUpvote:        cfg.AllowSelfUpvote,
		AdminCanDeleteProblems: cfg.AdminCanDeleteProblems,
	})

	// 6. Initialize Services
	metadataService := service.NewMetadataService(repos.metadata, keyCache, guard)
	svc := api.Services{
		Auth:          service.NewAuthService(repos.users, guard),
		Metadata:      metadataService,
		Problems:      service.NewProblemService(repos.problems, repos.saved, metadataService, guard),
		SavedProblems: service.NewSavedProblemService(repos.saved, repos.problems, guard),
		Solutions:     service.NewSolutionService(repos.solutions, repos.problems, guard),
		Users:         service.NewUserService(repos.users, repos.problems, repos.solutions),
	}

	if cfg.SeedMetadata {
		if err := metadataService.SeedDefaults(ctx); err != nil {
			logger.Fatal(ctx, "seeding metadata failed", zap.Error(err))
		}
	}
	if cfg.BootstrapAdminEmail != "" {
		if err := svc.Auth.EnsureAdmin(ctx, "Administrator", cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			logger.Fatal(ctx, "bootstrapping admin failed", zap.Error(err))
		}
	}

	// 7. Initialize Router & HTTP Server
	upvoteLimiter := middleware.NewKeyedRateLimiter(cfg.UpvoteRatePerSecond, cfg.UpvoteBurst)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go upvoteLimiter.RunSweeper(sweepCtx, time.Minute, 10*time.Minute)

	router := api.NewRouter(svc, api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		UpvoteLimiter:  upvoteLimiter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info(ctx, "shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", zap.Error(err))
		return
	}
	logger.Info(ctx, "server stopped gracefully")
}

func openRepositories(ctx context.Context, cfg *config.Config) repositories {
	switch cfg.StorageDriver {
	case "memory":
		store := repository.NewMemoryStore()
		logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		return repositories{
			users:     store.Users(),
			problems:  store.Problems(),
			solutions: store.Solutions(),
			metadata:  store.Metadata(),
			saved:     store.SavedProblems(),
		}
	case "postgres":
		if err := database.Connect(ctx); err != nil {
			logger.Fatal(ctx, "database connection failed", zap.Error(err))
		}
		if err := database.Migrate(ctx, database.DB); err != nil {
			logger.Fatal(ctx, "database migration failed", zap.Error(err))
		}
		return repositories{
			users:     repository.NewPgUserRepository(database.DB),
			problems:  repository.NewPgProblemRepository(database.DB),
			solutions: repository.NewPgSolutionRepository(database.DB),
			metadata:  repository.NewPgMetadataRepository(database.DB),
			saved:     repository.NewPgSavedProblemRepository(database.DB),
		}
	}
	logger.Fatal(ctx, "unknown storage driver", zap.String("driver", cfg.StorageDriver))
	return repositories{}
}
