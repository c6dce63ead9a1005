package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/moim/internal/app/auth"
	appControllers "github.com/yigit/moim/internal/app/controllers"
	appMigrations "github.com/yigit/moim/internal/app/migrations"
	"github.com/yigit/moim/internal/app/notify"
	appRepos "github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/app/repositories/memstore"
	appRoutes "github.com/yigit/moim/internal/app/routes"
	appServices "github.com/yigit/moim/internal/app/services"
	"github.com/yigit/moim/internal/config"
	"github.com/yigit/moim/internal/db"
	appMiddleware "github.com/yigit/moim/internal/middleware"
	pkgAuth "github.com/yigit/moim/internal/pkg/auth"
	"github.com/yigit/moim/internal/pkg/helpers"
	"github.com/yigit/moim/internal/pkg/logger"
	"github.com/yigit/moim/internal/pkg/push"
	"github.com/yigit/moim/internal/pkg/validation"
	"github.com/yigit/moim/internal/scheduler"
	"github.com/yigit/moim/internal/seed"
	"github.com/yigit/moim/internal/tasks"
	"github.com/yigit/moim/internal/worker"
)

// sweepTimeout bounds one scheduled sweep
const sweepTimeout = 2 * time.Minute

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store    appRepos.Store
	Database *db.PostgresDB // nil with the memory driver

	Redis       *redis.Client // nil when redis is not configured
	QueueClient *asynq.Client
	Worker      *worker.Server
	Scheduler   *scheduler.Scheduler

	JWTService     *pkgAuth.JWTService
	CronVerifier   *pkgAuth.CronSecretVerifier
	Authorizer     appAuth.AdminAuthorizer
	AuthMiddleware *appMiddleware.AuthMiddleware
	Dispatcher     *notify.Dispatcher

	LifecycleService appServices.LifecycleService
	RoomService      appServices.RoomService
	VoteService      appServices.VoteService
	AdminService     appServices.AdminService
	ProfileService   appServices.ProfileService
	FeedbackService  appServices.FeedbackService

	Controllers appRoutes.Controllers
	Logger      zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if override := os.Getenv("CONFIG_PATH"); override != "" {
		configPath = override
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured store. Postgres runs the migrations first.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, *db.PostgresDB, error) {
	if cfg.Database.Driver == "memory" {
		lgr.Warn().Msg("Using in-memory store; data is lost on restart")
		return memstore.New(), nil, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.Pool.Ping(pingCtx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		database.Close()
		return nil, nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return appRepos.NewPostgresStore(database), database, nil
}

// BuildDependencies initializes transports, services, and controllers on top of store.
func BuildDependencies(ctx context.Context, cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	if err := validation.RegisterRules(); err != nil {
		return nil, err
	}

	if err := seed.CreateDefaultAdmins(ctx, store, cfg.Admin.UIDs, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to seed admins, proceeding anyway...")
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.CronVerifier = pkgAuth.NewCronSecretVerifier(cfg.Sweep.SecretHash)
	if cfg.Sweep.SecretHash == "" {
		lgr.Warn().Msg("No sweep secret configured; /cron/sweep rejects every call")
	}

	var authorizer appAuth.AdminAuthorizer = appAuth.NewRegistryAuthorizer(store)
	var cleaner notify.TokenCleaner = notify.NewInlineCleaner(store, logger.Component("token_cleaner"))

	if cfg.RedisEnabled() {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		authorizer = appAuth.NewCachedAuthorizer(
			authorizer,
			deps.Redis,
			helpers.ParseDuration(cfg.Redis.AdminCacheTTL, 5*time.Minute),
			logger.Component("admin_cache"),
		)

		deps.QueueClient = asynq.NewClient(redisOpt)
		cleaner = tasks.NewQueueCleaner(deps.QueueClient)
		deps.Worker = worker.NewServer(redisOpt, store, lgr)
		lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis enabled for admin cache and task queue")
	}
	deps.Authorizer = authorizer

	sender, err := newPushSender(ctx, cfg, lgr)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Dispatcher = notify.NewDispatcher(notify.Config{
		Inbox:     store,
		Tokens:    store,
		Sender:    sender,
		Cleaner:   cleaner,
		BatchSize: cfg.Push.BatchSize,
		Clock:     helpers.SystemClock,
		Logger:    logger.Component("notify"),
	})

	settings := appServices.RoomSettings{
		DefaultDuration: helpers.ParseDuration(cfg.Rooms.DefaultDuration, 2*time.Hour),
		VoteWindow:      helpers.ParseDuration(cfg.Rooms.VoteWindow, 24*time.Hour),
		JoinLock:        helpers.ParseDuration(cfg.Rooms.JoinLock, 10*time.Minute),
		RevealLead:      helpers.ParseDuration(cfg.Rooms.RevealLead, time.Hour),
	}
	clock := helpers.Clock(helpers.SystemClock)
	retention := helpers.ParseDuration(cfg.Sweep.Retention, 30*24*time.Hour)

	deps.LifecycleService = appServices.NewLifecycleService(store, deps.Dispatcher, retention, clock, logger.Component("lifecycle"))
	deps.RoomService = appServices.NewRoomService(store, deps.LifecycleService, deps.Dispatcher, settings, clock, logger.Component("rooms"))
	deps.VoteService = appServices.NewVoteService(store, deps.LifecycleService, settings, clock, logger.Component("votes"))
	deps.AdminService = appServices.NewAdminService(store, clock, logger.Component("admin"))
	deps.ProfileService = appServices.NewProfileService(store, authorizer, clock, logger.Component("profile"))
	deps.FeedbackService = appServices.NewFeedbackService(store, clock, logger.Component("feedback"))

	if cfg.Sweep.Schedule != "" {
		deps.Scheduler, err = scheduler.New(cfg.Sweep.Schedule, deps.LifecycleService, sweepTimeout, lgr)
		if err != nil {
			deps.Close()
			return nil, err
		}
	}

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, authorizer)

	checks := map[string]appControllers.CheckFunc{"store": store.Ping}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}

	deps.Controllers = appRoutes.Controllers{
		Room:    appControllers.NewRoomController(deps.RoomService, deps.VoteService, deps.LifecycleService),
		Admin:   appControllers.NewAdminController(deps.AdminService, deps.RoomService, deps.FeedbackService),
		Profile: appControllers.NewProfileController(deps.ProfileService, deps.FeedbackService),
		System:  appControllers.NewSystemController(deps.LifecycleService, checks),
	}

	return deps, nil
}

func newPushSender(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (push.Sender, error) {
	if cfg.Push.CredentialsFile == "" {
		lgr.Warn().Msg("No push credentials configured; notifications are only logged")
		return push.NewLogSender(logger.Component("push")), nil
	}

	sender, err := push.NewFCMSender(ctx, push.FCMConfig{
		CredentialsFile: cfg.Push.CredentialsFile,
		ProjectID:       cfg.Push.ProjectID,
		LinkBase:        cfg.Server.BaseURL,
	})
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize FCM sender")
		return nil, err
	}
	lgr.Info().Msg("FCM push sender initialized")
	return sender, nil
}

// Close releases the transports opened by BuildDependencies. The store is closed by its owner.
func (d *Dependencies) Close() {
	if d.QueueClient != nil {
		if err := d.QueueClient.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close task queue client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(logger.Component("http")))
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CorsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", appMiddleware.CronSecretHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.CronVerifier)

	return router
}
