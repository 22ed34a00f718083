package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nsi_edu_backend/internal/config"
	"nsi_edu_backend/internal/controller"
	"nsi_edu_backend/internal/middleware"
	"nsi_edu_backend/internal/repository"
	"nsi_edu_backend/internal/service"
	"nsi_edu_backend/pkg/configwatcher"
	"nsi_edu_backend/pkg/database"
	"nsi_edu_backend/pkg/logger"
	"nsi_edu_backend/pkg/monitoring"
	"nsi_edu_backend/pkg/security"
	"nsi_edu_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	tracer *sdktrace.TracerProvider
	// stops background goroutines (rate limiter eviction, config watcher)
	cancel context.CancelFunc
	ctx    context.Context
}

type repositories struct {
	user     *repository.UserRepository
	progress *repository.ProgressRepository
	streak   *repository.StreakRepository
	attempt  *repository.AttemptRepository
	exercise *repository.ExerciseRepository
	hint     *repository.HintRepository
	award    *repository.AwardRepository
}

type services struct {
	catalog     *service.CatalogService
	recorder    *service.AttemptRecorder
	history     *service.AttemptHistory
	awards      *service.AwardService
	progress    *service.ProgressService
	hints       *service.HintService
	leaderboard *service.LeaderboardService
	calendar    service.Calendar
}

type controllers struct {
	attempt  *controller.AttemptController
	progress *controller.ProgressController
	health   *controller.HealthController
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		progress: repository.NewProgressRepository(db),
		streak:   repository.NewStreakRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		exercise: repository.NewExerciseRepository(db),
		hint:     repository.NewHintRepository(db),
		award:    repository.NewAwardRepository(db),
	}
}

func newLocker(cfg *config.GamificationConfig, rdb *redis.Client) service.UserLocker {
	if cfg.Locker == "redis" && rdb != nil {
		return service.NewRedisUserLocker(rdb, cfg.LockTTL)
	}
	return service.NewLocalUserLocker()
}

func initServices(ctx context.Context, repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{
		catalog:  service.NewCatalogService(db, repos.award),
		calendar: service.NewCalendar(cfg.Gamification.Location),
	}

	// The catalog is read once; definition changes need a restart.
	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load award catalog: %w", err)
	}

	gc := &cfg.Gamification
	locker := newLocker(gc, rdb)
	engine := service.NewAwardEngine(catalog, repos.award, repos.attempt, repos.streak, repos.progress)
	streaks := service.NewStreakTracker(repos.streak)

	s.leaderboard = service.NewLeaderboardService(db, repos.progress, rdb, gc.LeaderboardCacheTTL)
	s.recorder = service.NewAttemptRecorder(db, locker, gc.LockTimeout, s.calendar, engine, streaks,
		repos.user, repos.exercise, repos.attempt, repos.progress, s.leaderboard)
	s.history = service.NewAttemptHistory(db, repos.user, repos.exercise, repos.attempt)
	s.awards = &service.AwardService{
		DB:           db,
		Locker:       locker,
		LockTimeout:  gc.LockTimeout,
		Engine:       engine,
		Streaks:      streaks,
		UserRepo:     repos.user,
		ProgressRepo: repos.progress,
		Leaderboard:  s.leaderboard,
	}
	s.progress = &service.ProgressService{
		DB:           db,
		Locker:       locker,
		LockTimeout:  gc.LockTimeout,
		Engine:       engine,
		UserRepo:     repos.user,
		ProgressRepo: repos.progress,
		StreakRepo:   repos.streak,
		AttemptRepo:  repos.attempt,
		AwardRepo:    repos.award,
		Leaderboard:  s.leaderboard,
	}
	s.hints = &service.HintService{
		DB:           db,
		Locker:       locker,
		LockTimeout:  gc.LockTimeout,
		UserRepo:     repos.user,
		HintRepo:     repos.hint,
		ProgressRepo: repos.progress,
		Leaderboard:  s.leaderboard,
	}
	return s, nil
}

func initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		attempt:  controller.NewAttemptController(s.recorder, s.history, s.hints),
		progress: controller.NewProgressController(s.progress, s.awards, s.leaderboard, s.catalog, s.calendar),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID(), middleware.AccessLog())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// Migrate creates or updates the schema and seeds the award catalog.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	report, err := service.NewCatalogService(db, repository.NewAwardRepository(db)).Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed award catalog: %w", err)
	}
	logger.Log.Info("Award catalog seeded",
		zap.Int("badges_created", report.BadgesCreated),
		zap.Int("achievements_created", report.AchievementsCreated))
	return nil
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized", zap.String("level", cfg.Log.Level), zap.String("config", cfg.File))

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, DB: db, ctx: ctx, cancel: cancel}

	// Schema changes run in debug mode or when forced; release deployments migrate out of band.
	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := Migrate(ctx, db); err != nil {
			cancel()
			return nil, err
		}
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("initialize redis: %w", err)
	}
	app.Redis = rdb

	repos := initRepositories(db)
	svcs, err := initServices(ctx, repos, cfg, db, rdb)
	if err != nil {
		cancel()
		return nil, err
	}
	ctrls := initControllers(svcs, db, rdb)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	registerRoutes(router, ctrls)

	if cfg.File != "" {
		watcher := configwatcher.New(cfg.File, configwatcher.ApplyLogLevel)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	return app, nil
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close releases background goroutines and connections.
func (a *App) Close(ctx context.Context) {
	a.cancel()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
