package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	appControllers "github.com/campusgpt/admission/internal/app/controllers"
	appMigrations "github.com/campusgpt/admission/internal/app/migrations"
	appRepos "github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/app/repositories/memory"
	appRoutes "github.com/campusgpt/admission/internal/app/routes"
	appServices "github.com/campusgpt/admission/internal/app/services"
	"github.com/campusgpt/admission/internal/config"
	"github.com/campusgpt/admission/internal/db"
	appMiddleware "github.com/campusgpt/admission/internal/middleware"
	pkgAuth "github.com/campusgpt/admission/internal/pkg/auth"
	"github.com/campusgpt/admission/internal/pkg/cache"
	"github.com/campusgpt/admission/internal/pkg/email"
	"github.com/campusgpt/admission/internal/pkg/errreport"
	"github.com/campusgpt/admission/internal/pkg/filestorage"
	"github.com/campusgpt/admission/internal/pkg/helpers"
	"github.com/campusgpt/admission/internal/pkg/logger"
	"github.com/campusgpt/admission/internal/pkg/payment"
	"github.com/campusgpt/admission/internal/pkg/tracing"
	"github.com/campusgpt/admission/internal/seed"
)

// Version is stamped into error reports; override with -ldflags.
var Version = "dev"

// uploadsURLPath is where locally stored documents are served from
const uploadsURLPath = "/uploads"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos               *appRepos.Repositories
	Services            *appServices.Services
	AdmissionController *appControllers.AdmissionController
	StaffController     *appControllers.StaffController
	AuthMiddleware      *appMiddleware.AuthMiddleware
	JWTService          *pkgAuth.JWTService
	FileStorage         filestorage.FileStorage
	Cache               cache.Cache
	Logger              zerolog.Logger

	closers []func(context.Context) error
}

// Close releases every resource opened by BuildDependencies, newest first.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, d.closers[i](ctx))
	}
	d.closers = nil
	return errs
}

func (d *Dependencies) onClose(fn func(context.Context) error) {
	d.closers = append(d.closers, fn)
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: logger.ParseFormat(cfg.Logging.Format),
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the configured store, applies migrations and seeds
// reference data. The returned pool is nil for the memory driver.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, *appRepos.Repositories, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var (
		dbPool *pgxpool.Pool
		repos  *appRepos.Repositories
	)

	if cfg.Database.Driver == "memory" {
		lgr.Warn().Msg("Using in-memory store, data is lost on restart")
		repos = memory.NewRepositories()
	} else {
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, nil, err
		}
		dbPool = database.Pool
		lgr.Info().Msg("Database connection successfully established.")

		migrationsDir := cfg.Database.MigrationsDir
		if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
			lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
			dbPool.Close()
			return nil, nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
		}

		lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
		migrator := appMigrations.NewMigrator(dbPool, lgr)
		if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
			lgr.Error().Err(err).Msg("Database migration error")
			dbPool.Close()
			return nil, nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		repos = appRepos.NewRepositories(dbPool)
	}

	admin := seed.Admin{Email: cfg.Seed.AdminEmail, Password: cfg.Seed.AdminPassword}
	if err := seed.CreateDefaultData(ctx, repos, admin, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, repos, nil
}

// BuildDependencies initializes the adapters, services and controllers.
// On error every resource opened so far is closed again.
func BuildDependencies(cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) (*Dependencies, error) {
	ctx := context.Background()
	deps := &Dependencies{Repos: repos, Logger: lgr}
	built := false
	defer func() {
		if !built {
			_ = deps.Close(ctx)
		}
	}()

	errreport.Configure(cfg.Rollbar.Token, cfg.Rollbar.Environment, Version)
	deps.onClose(func(context.Context) error {
		errreport.Flush()
		return nil
	})

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Server.Mode,
	}, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	deps.onClose(shutdownTracing)

	if deps.Cache, err = buildCache(ctx, cfg, lgr); err != nil {
		return nil, err
	}
	deps.onClose(func(context.Context) error { return deps.Cache.Close() })

	if deps.FileStorage, err = buildStorage(ctx, cfg, lgr, deps); err != nil {
		return nil, err
	}

	gateway, err := buildGateway(cfg)
	if err != nil {
		return nil, err
	}

	sender, err := email.NewSender(email.Config{
		Provider:  cfg.Notification.Provider,
		FromName:  cfg.Notification.FromName,
		FromEmail: cfg.Notification.FromEmail,
		SMTP: email.SMTPConfig{
			Host:     cfg.Notification.SMTP.Host,
			Port:     cfg.Notification.SMTP.Port,
			Username: cfg.Notification.SMTP.Username,
			Password: cfg.Notification.SMTP.Password,
			UseTLS:   cfg.Notification.SMTP.UseTLS,
		},
		SendGridAPIKey: cfg.Notification.SendGridAPIKey,
	}, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email sender: %w", err)
	}
	notifier := appServices.NewNotificationService(
		sender,
		helpers.ParseDuration(cfg.Notification.Timeout, 5*time.Second),
		cfg.Institution.Name,
		lgr,
	)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 8*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.Services = appServices.NewServices(appServices.Dependencies{
		Repos:    repos,
		Cache:    deps.Cache,
		Notifier: notifier,
		Gateway:  gateway,
		Storage:  deps.FileStorage,
		JWT:      deps.JWTService,
		Settings: appServices.AdmissionSettings{
			SiteURL:        cfg.Server.SiteURL,
			PortalURL:      cfg.Institution.PortalURL,
			Fees:           cfg.Fees,
			MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		},
		EmailDomain: cfg.Institution.EmailDomain,
		Clock:       helpers.SystemClock,
		Logger:      lgr,
	})

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, repos.Staff)
	deps.AdmissionController = appControllers.NewAdmissionController(deps.Services.Admission, deps.Services.Reference)
	deps.StaffController = appControllers.NewStaffController(deps.Services.Staff)

	built = true
	return deps, nil
}

func buildCache(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (cache.Cache, error) {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured, reference data is read through uncached")
		return cache.Noop{}, nil
	}
	rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		helpers.ParseDuration(cfg.Redis.TTL, 10*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis cache connected")
	return rc, nil
}

func buildStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger, deps *Dependencies) (filestorage.FileStorage, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		gcs, err := filestorage.NewGCSStorage(ctx, cfg.Storage.GCSBucket, cfg.Storage.GCSCredentials, lgr)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gcs storage: %w", err)
		}
		deps.onClose(func(context.Context) error { return gcs.Close() })
		lgr.Info().Str("bucket", cfg.Storage.GCSBucket).Msg("Documents stored in Google Cloud Storage")
		return gcs, nil
	default:
		local, err := filestorage.NewLocalStorage(cfg.Storage.LocalPath, uploadsURLPath)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to initialize file storage")
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		return local, nil
	}
}

func buildGateway(cfg *config.Config) (payment.Gateway, error) {
	var gateway payment.Gateway
	switch cfg.Payment.Provider {
	case "midtrans":
		mt, err := payment.NewMidtransGateway(cfg.Payment.MidtransServerKey, cfg.Payment.MidtransEnvironment)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize midtrans gateway: %w", err)
		}
		gateway = mt
	default:
		gateway = payment.NewSimulatedGateway()
	}
	return payment.WithTimeout{
		Gateway: gateway,
		Timeout: helpers.ParseDuration(cfg.Payment.Timeout, 15*time.Second),
	}, nil
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
	router.MaxMultipartMemory = cfg.Storage.MaxUploadBytes
	router.Use(
		appMiddleware.RequestID(),
		appMiddleware.RequestLogger(),
		gin.Recovery(),
		cors.New(corsConfig(cfg)),
		otelgin.Middleware(cfg.Tracing.ServiceName),
	)

	appRoutes.SetupRouter(router,
		deps.AdmissionController,
		deps.StaffController,
		deps.AuthMiddleware,
	)

	if cfg.Storage.Provider != "gcs" {
		router.Static(uploadsURLPath, cfg.Storage.LocalPath)
		lgr.Info().Str("path", cfg.Storage.LocalPath).Msg("Static file serving configured for uploads directory")
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	cc := cors.DefaultConfig()
	origins := cfg.CORS.Origins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
		cc.AllowCredentials = true
	}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", appMiddleware.RequestIDHeader)
	cc.ExposeHeaders = []string{appMiddleware.RequestIDHeader}
	return cc
}
