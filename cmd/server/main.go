// Package main is the entry point of the gamification service.
//
// The service receives learning events from the LMS, awards points exactly
// once per event, recomputes levels, and serves progress, transaction log
// and leaderboard queries over a REST API.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: PostgreSQL and Redis implementations, scheduler
// - Interface: HTTP handlers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/misis-lms/gamification-service/config"

	// Application layer
	"github.com/misis-lms/gamification-service/internal/application/command"
	"github.com/misis-lms/gamification-service/internal/application/query"

	// Domain layer
	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/event"
	"github.com/misis-lms/gamification-service/internal/domain/level"

	// Infrastructure layer
	"github.com/misis-lms/gamification-service/internal/infrastructure/persistence/postgres"
	"github.com/misis-lms/gamification-service/internal/infrastructure/persistence/redis"
	"github.com/misis-lms/gamification-service/internal/infrastructure/scheduler"
	"github.com/misis-lms/gamification-service/internal/infrastructure/scheduler/jobs"

	// Interface layer
	httpserver "github.com/misis-lms/gamification-service/internal/interface/http"
	"github.com/misis-lms/gamification-service/internal/interface/http/handlers"

	// Packages
	"github.com/misis-lms/gamification-service/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.AddCaller,
	})
	log.Info("starting gamification service",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Repositories
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	eventTypeRepo := postgres.NewEventTypeRepository(dbConn)
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	courseRepo := postgres.NewCourseRepository(dbConn)
	groupRepo := postgres.NewGroupRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	txManager := postgres.NewTxManager(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Redis (optional leaderboard cache)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache *redis.Cache
		lbCache    course.LeaderboardCache
	)
	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureLeaderboardCache) {
		redisCache, err = redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// The cache is an optimization. Leaderboards fall back to
			// PostgreSQL when Redis is unreachable.
			log.Warn("redis unavailable, leaderboard cache disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			lbCache = redis.NewLeaderboardCache(redisCache, cfg.Redis.LeaderboardTTL)
			log.Info("redis connection established", logger.String("addr", cfg.Redis.Host))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Domain services and use case handlers
	// ─────────────────────────────────────────────────────────────────────────
	levels := level.NewEngine(cfg.Leveling.Formula, cfg.Leveling.BasePoints, cfg.Leveling.Increment)
	registry := event.NewRegistry(eventTypeRepo, ledgerRepo)

	coursesEnabled := cfg.Features.IsEnabled(config.FeatureCourses)
	tracker := command.NewEnrollmentTracker(coursesEnabled, courseRepo, groupRepo, enrollmentRepo, log)

	awardPoints := command.NewAwardPointsHandler(txManager, userRepo, registry, ledgerRepo, levels, tracker, log)
	manageEventTypes := command.NewManageEventTypesHandler(eventTypeRepo, log)
	manageCourses := command.NewManageCoursesHandler(courseRepo, groupRepo, log)

	getProgress := query.NewGetProgressHandler(userRepo, levels)
	getLeaderboard := query.NewGetLeaderboardHandler(courseRepo, groupRepo, enrollmentRepo, lbCache, log)
	listTransactions := query.NewListTransactionsHandler(ledgerRepo)
	listUsers := query.NewListUsersHandler(userRepo)
	listEventTypes := query.NewListEventTypesHandler(eventTypeRepo)
	listCourses := query.NewListCoursesHandler(courseRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Background jobs
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled && cfg.Features.IsEnabled(config.FeatureScheduledJobs) {
		sched = scheduler.NewScheduler(log)

		reconcile := jobs.NewReconcileTotalsJob(userRepo, ledgerRepo, levels, log)
		if err := sched.Register(reconcile, scheduler.NewDailySchedule(
			cfg.Scheduler.ReconcileHour, cfg.Scheduler.ReconcileMinute)); err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}

		if lbCache != nil && coursesEnabled {
			warm := jobs.NewWarmLeaderboardJob(courseRepo, enrollmentRepo, lbCache, log)
			if err := sched.Register(warm, scheduler.NewIntervalSchedule(
				cfg.Scheduler.WarmLeaderboardInterval)); err != nil {
				return fmt.Errorf("failed to register cache warming job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				log.Warn("scheduler stop failed", logger.Err(err))
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Health checks
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		health.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout
	serverCfg.EnableCORS = cfg.Server.EnableCORS
	serverCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.Server.RateLimitPerMinute
	serverCfg.APIKeyHeader = cfg.Server.APIKeyHeader
	serverCfg.AdminAPIKeyHashes = cfg.Server.AdminAPIKeyHashes

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		AwardPoints:      awardPoints,
		ManageEventTypes: manageEventTypes,
		ManageCourses:    manageCourses,
		GetProgress:      getProgress,
		GetLeaderboard:   getLeaderboard,
		ListTransactions: listTransactions,
		ListUsers:        listUsers,
		ListEventTypes:   listEventTypes,
		ListCourses:      listCourses,
		Logger:           log,
		HealthChecker:    health,
	})

	serverErr := server.StartAsync()
	log.Info("HTTP server started", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. Wait for shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	log.Info("gamification service stopped")
	return nil
}

// connectDatabase builds the connection from DATABASE_URL when present,
// otherwise from the individual DB_* settings.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	return postgres.NewConnection(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
}
