package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/focusnest/teamfit-service/internal/achievement"
	"github.com/focusnest/teamfit-service/internal/config"
	"github.com/focusnest/teamfit-service/internal/httpapi"
	"github.com/focusnest/teamfit-service/internal/leaderboard"
	"github.com/focusnest/teamfit-service/internal/metrics"
	"github.com/focusnest/teamfit-service/internal/team"
	"github.com/focusnest/teamfit-service/internal/workout"
	sharedauth "github.com/focusnest/teamfit-service/shared/auth"
	"github.com/focusnest/teamfit-service/shared/logging"
	"github.com/focusnest/teamfit-service/shared/mongodb"
	sharedredis "github.com/focusnest/teamfit-service/shared/redis"
	sharedserver "github.com/focusnest/teamfit-service/shared/server"
)

const serviceName = "teamfit-service"

type repositories struct {
	workouts     workout.Repository
	teams        team.Repository
	achievements achievement.Store
}

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLoggerWithLevel(serviceName, cfg.LogLevel)

	// Refuse to start with a malformed badge catalog.
	evaluator, err := achievement.NewEvaluator(achievement.Catalog())
	if err != nil {
		panic(fmt.Errorf("badge catalog error: %w", err))
	}

	repos, cleanup, err := newRepositories(ctx, cfg, logger)
	if err != nil {
		panic(fmt.Errorf("repository init error: %w", err))
	}
	defer cleanup()

	cache, closeCache, err := newLeaderboardCache(ctx, cfg, logger)
	if err != nil {
		panic(fmt.Errorf("leaderboard cache error: %w", err))
	}
	defer closeCache()

	clock := workout.NewSystemClock()
	ids := workout.NewUUIDGenerator()
	collector := metrics.New()

	workoutService, err := workout.NewService(repos.workouts, clock, ids, logger)
	if err != nil {
		panic(fmt.Errorf("workout service init error: %w", err))
	}
	teamService, err := team.NewService(repos.teams, clock, ids, logger)
	if err != nil {
		panic(fmt.Errorf("team service init error: %w", err))
	}
	achievementService, err := achievement.NewService(achievement.Options{
		History:   workoutService,
		Teams:     teamService,
		Store:     repos.achievements,
		Evaluator: evaluator,
		Clock:     clock,
		Location:  cfg.Location,
		Metrics:   collector,
		Logger:    logger,
	})
	if err != nil {
		panic(fmt.Errorf("achievement service init error: %w", err))
	}
	leaderboardService, err := leaderboard.NewService(leaderboard.Options{
		Teams:    teamService,
		Workouts: workoutService,
		Cache:    cache,
		CacheTTL: cfg.Leaderboard.CacheTTL,
		Scorer:   leaderboard.DefaultScorer(),
		Clock:    clock,
		Location: cfg.Location,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		panic(fmt.Errorf("leaderboard service init error: %w", err))
	}

	workoutService.RequireMembership(teamService)
	workoutService.AddHook(achievementService)
	workoutService.AddHook(leaderboardService)
	teamService.AddHook(leaderboardService)

	var shutdownHooks []func(context.Context)
	if cfg.Leaderboard.RefreshSchedule != "" {
		job, err := leaderboard.NewRefreshJob(cfg.Leaderboard.RefreshSchedule, leaderboardService, cfg.Location, collector, logger)
		if err != nil {
			panic(fmt.Errorf("leaderboard refresh job error: %w", err))
		}
		job.Start()
		shutdownHooks = append(shutdownHooks, job.Stop)
	}

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := sharedserver.NewRouter(serviceName, sharedserver.RouterOptions{
		Metrics:    collector.Handler(),
		Middleware: []func(http.Handler) http.Handler{collector.Middleware},
		HealthDetails: map[string]string{
			"data_store":            string(cfg.DataStore),
			"achievement_store":     string(cfg.Achievements),
			"badge_catalog_version": strconv.Itoa(achievement.CatalogVersion),
		},
	}, func(r chi.Router) {
		httpapi.RegisterRoutes(r, httpapi.Services{
			Workouts:     workoutService,
			Teams:        teamService,
			Achievements: achievementService,
			Leaderboards: leaderboardService,
		}, verifier, logger)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := sharedserver.Run(ctx, srv, logger, shutdownHooks...); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (repositories, func(), error) {
	var (
		repos    repositories
		cleanups []func()
		fsClient *firestore.Client
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.UsesFirestore() {
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return repositories{}, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		client, err := firestore.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return repositories{}, nil, fmt.Errorf("firestore client: %w", err)
		}
		fsClient = client
		cleanups = append(cleanups, func() { _ = client.Close() })
	}

	switch cfg.DataStore {
	case config.DataStoreFirestore:
		repos.workouts = workout.NewFirestoreRepository(fsClient)
		repos.teams = team.NewFirestoreRepository(fsClient)
	default:
		repos.workouts = workout.NewMemoryRepository()
		repos.teams = team.NewMemoryRepository()
	}

	switch cfg.Achievements {
	case config.AchievementStoreFirestore:
		repos.achievements = achievement.NewFirestoreStore(fsClient)
	case config.AchievementStoreMongo:
		client, err := mongodb.NewClient(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			cleanup()
			return repositories{}, nil, err
		}
		cleanups = append(cleanups, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("mongodb disconnect failed", slog.Any("error", err))
			}
		})
		repos.achievements = achievement.NewMongoStore(client.Collection(achievement.MongoCollection))
	default:
		repos.achievements = achievement.NewRetryingStore(achievement.NewMemoryStore(), cfg.BadgeWriteAttempts)
	}

	return repos, cleanup, nil
}

func newLeaderboardCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (leaderboard.Cache, func(), error) {
	if len(cfg.Redis.Addrs) == 0 {
		logger.Info("leaderboard cache disabled, REDIS_ADDRS not set")
		return leaderboard.NewNoopCache(), func() {}, nil
	}

	client, err := sharedredis.NewClient(ctx, cfg.Redis.Addrs, cfg.Redis.Password, logger)
	if err != nil {
		return nil, nil, err
	}
	return leaderboard.NewRedisCache(client), func() { _ = client.Close() }, nil
}
