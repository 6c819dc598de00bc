package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/yigit/madrasa/internal/app/controllers"
	"github.com/yigit/madrasa/internal/app/jobs"
	"github.com/yigit/madrasa/internal/app/migrations"
	"github.com/yigit/madrasa/internal/app/repositories"
	"github.com/yigit/madrasa/internal/app/routes"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/config"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/middleware"
	"github.com/yigit/madrasa/internal/pkg/auth"
	"github.com/yigit/madrasa/internal/pkg/cache"
	"github.com/yigit/madrasa/internal/pkg/email"
	"github.com/yigit/madrasa/internal/pkg/filestorage"
	"github.com/yigit/madrasa/internal/pkg/helpers"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/logger"
	"github.com/yigit/madrasa/internal/pkg/report"
	"github.com/yigit/madrasa/internal/pkg/validation"
	"github.com/yigit/madrasa/internal/pkg/websocket"
	"github.com/yigit/madrasa/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *repositories.Repositories
	Cache          *cache.QueryCache
	FileStorage    *filestorage.LocalStorage
	JWTService     *auth.JWTService
	Hub            *websocket.Hub
	Scheduler      *jobs.Scheduler
	Metrics        *middleware.Metrics
	AuthMiddleware *middleware.AuthMiddleware
	Handlers       routes.Handlers
	Logger         zerolog.Logger
}

// ConfigPath is configs/config.yaml unless CONFIG_PATH points elsewhere.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join("configs", "config.yaml")
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(ConfigPath())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	pool := database.Pool

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		pool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}
	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	if err := migrations.NewMigrator(pool).MigrateFromDirectory(ctx, migrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return pool, nil
}

// SetupCache picks redis when an address is configured and an in-process
// store otherwise. A redis that cannot be reached is an error rather than a
// silent fallback, so multiple instances never diverge.
func SetupCache(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*cache.QueryCache, error) {
	ttl := helpers.ParseDuration(cfg.Redis.CacheTTL, 5*time.Minute)
	cacheLogger := logger.Component("cache")

	if cfg.Redis.Addr == "" {
		lgr.Info().Dur("ttl", ttl).Msg("Using in-process query cache")
		return cache.New(cache.NewMemoryStore(), cfg.Redis.Prefix, ttl, cacheLogger), nil
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", ttl).Msg("Using redis query cache")
	return cache.New(store, cfg.Redis.Prefix, ttl, cacheLogger), nil
}

// schemas collects the list schemas of the administration tables, keyed by
// resource name.
func schemas(r *repositories.Repositories) map[string]listing.Schema {
	return map[string]listing.Schema{
		services.ResAcademicYears:   r.AcademicYears.Spec().Schema,
		services.ResHolidays:        r.Holidays.Spec().Schema,
		services.ResRooms:           r.Rooms.Spec().Schema,
		services.ResGuardians:       r.Guardians.Spec().Schema,
		services.ResStudentGroups:   r.StudentGroups.Spec().Schema,
		services.ResStudents:        r.Students.Spec().Schema,
		services.ResTeachers:        r.Teachers.Spec().Schema,
		services.ResEnrollments:     r.Enrollments.Spec().Schema,
		services.ResAttendance:      r.Attendance.Spec().Schema,
		services.ResGrades:          r.Grades.Spec().Schema,
		services.ResBehaviorRecords: r.BehaviorRecords.Spec().Schema,
		services.ResReportTemplates: r.ReportTemplates.Spec().Schema,
	}
}

// BuildDependencies initializes repositories, services, controllers and jobs.
func BuildDependencies(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, queryCache *cache.QueryCache, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr, Cache: queryCache}

	if err := validation.RegisterGinValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	deps.Repos = repositories.NewRepositories(pool)
	repos := deps.Repos

	if err := seed.CreateDefaultAdmin(ctx, repos.Accounts, pool, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, logger.Component("seed")); err != nil {
		return nil, err
	}

	var err error
	maxUpload := int64(cfg.Server.MaxUploadSizeMB) << 20
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, strings.TrimRight(cfg.Server.BaseURL, "/")+"/api/messages", maxUpload)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = auth.NewJWTService(auth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	mailer := email.NewEmailService(email.SMTPConfig{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		FromName:   cfg.SMTP.FromName,
		FromEmail:  cfg.SMTP.FromEmail,
		UseTLS:     cfg.SMTP.Port == 465,
		SchoolName: cfg.Reports.SchoolName,
	}, logger.Component("email"))
	if !mailer.Enabled() {
		lgr.Warn().Msg("SMTP not configured, email notifications are disabled")
	}

	deps.Hub = websocket.NewHub(logger.Component("websocket"))

	// Services
	svcLogger := logger.Component("services")
	settings := services.NewSettingsService(repos.Settings, queryCache, svcLogger)
	directory := services.NewDirectoryService(repos.Directory, queryCache, svcLogger)
	dashboard := services.NewDashboardService(repos.Dashboard, repos.Messages, queryCache)

	school := services.NewSchoolServices(services.SchoolStores{
		AcademicYears:   repos.AcademicYears,
		Holidays:        repos.Holidays,
		Rooms:           repos.Rooms,
		Guardians:       repos.Guardians,
		StudentGroups:   repos.StudentGroups,
		Students:        repos.Students,
		Teachers:        repos.Teachers,
		Enrollments:     repos.Enrollments,
		Attendance:      repos.Attendance,
		Grades:          repos.Grades,
		BehaviorRecords: repos.BehaviorRecords,
		ReportTemplates: repos.ReportTemplates,
		Schemas:         schemas(repos),
	}, queryCache, svcLogger)

	baseURL := strings.TrimRight(cfg.Server.BaseURL, "/")
	accounts := services.NewAccountService(repos.Accounts, repos.Accounts.Spec().Schema, repos.Tokens,
		settings, mailer, baseURL+"/login", queryCache, svcLogger)

	authService := services.NewAuthService(repos.Accounts, repos.Tokens, directory, deps.JWTService, logger.Component("auth"))

	messages := services.NewMessageService(services.MessageServiceDeps{
		Messages:  repos.Messages,
		Files:     repos.Files,
		Directory: directory,
		Storage:   deps.FileStorage,
		Notifier:  websocket.NewMessageNotifier(deps.Hub),
		Mailer:    mailer,
		Settings:  settings,
		LinkBase:  baseURL,
	}, logger.Component("messages"))

	reports := services.NewReportService(services.ReportServiceDeps{
		Reports:       repos.Reports,
		Students:      school.Students,
		Groups:        school.StudentGroups,
		AcademicYears: school.AcademicYears,
		Teachers:      school.Teachers,
		Templates:     school.ReportTemplates,
		Settings:      settings,
		SchoolName:    cfg.Reports.SchoolName,
		Weights: report.Weights{
			Test:     cfg.Reports.TestWeight,
			Task:     cfg.Reports.TaskWeight,
			Homework: cfg.Reports.HomeworkWeight,
		},
	}, logger.Component("reports"))

	// HTTP layer
	deps.AuthMiddleware = middleware.NewAuthMiddleware(deps.JWTService, repos.Accounts)
	deps.Handlers = routes.Handlers{
		Auth:      controllers.NewAuthController(authService, logger.Component("auth")),
		School:    controllers.NewSchoolController(school, dashboard, directory),
		Accounts:  controllers.NewAccountController(accounts),
		Settings:  controllers.NewSettingsController(settings),
		Messages:  controllers.NewMessageController(messages),
		Reports:   controllers.NewReportController(reports, logger.Component("reports")),
		WebSocket: websocket.NewHandler(deps.Hub, middleware.ParticipantKey, cfg.Server.CORSOrigins, logger.Component("websocket")),
		Resources: school,
	}

	// Maintenance jobs
	deps.Scheduler = jobs.NewScheduler(logger.Component("jobs"))
	retention := helpers.ParseDuration(cfg.Jobs.AttachmentRetention, 24*time.Hour)
	if err := deps.Scheduler.Add("attachment-reaper", cfg.Jobs.ReaperSchedule,
		jobs.AttachmentReaper(repos.Files, deps.FileStorage, retention, time.Now)); err != nil {
		return nil, err
	}
	if err := deps.Scheduler.Add("token-cleanup", cfg.Jobs.TokenCleanup, jobs.TokenCleanup(repos.Tokens)); err != nil {
		return nil, err
	}

	deps.Metrics = middleware.NewMetrics()
	deps.Metrics.Register(deps.Scheduler.Collectors()...)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, pool *pgxpool.Pool, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadSizeMB) << 20
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger.Component("http")),
		middleware.CORS(cfg.Server.CORSOrigins),
		deps.Metrics.Middleware(),
	)

	router.GET("/metrics", deps.Metrics.Handler())
	routes.SetupSwagger(router, swaggerHost(cfg.Server.BaseURL))

	routes.SetupRouter(router, deps.Handlers, deps.AuthMiddleware, func(c *gin.Context) error {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	})

	return router
}

func swaggerHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
