package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	respectcircle "github.com/joshuanoeldeke/RespectCircle"
	"github.com/joshuanoeldeke/RespectCircle/internal/config"
	"github.com/joshuanoeldeke/RespectCircle/internal/db"
	"github.com/joshuanoeldeke/RespectCircle/internal/events"
	"github.com/joshuanoeldeke/RespectCircle/internal/repository"
	"github.com/joshuanoeldeke/RespectCircle/internal/scheduler"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/storage"
	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
)

type App struct {
	Cfg       *config.Config
	DB        *sqlx.DB
	Events    events.Publisher
	Telemetry *telemetry.Metrics
	Scheduler *scheduler.Scheduler

	AuthService    *service.AuthService
	UserService    *service.UserService
	ProfileService *service.ProfileService
	EmailService   *service.EmailService
	MetricsService *service.MetricsService
	GoalService    *service.GoalService
	FeedService    *service.FeedService
	DemoService    *service.DemoService
	ExportService  *service.ExportService
	PageService    *service.PageService

	onClose []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	publisher, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
	if err != nil {
		// Events are optional; the ledger works without them.
		slog.Warn("event publishing disabled", "error", err)
		publisher = events.Noop{}
	}

	fileStorage, err := storage.New(ctx, cfg)
	if err != nil {
		database.Close()
		publisher.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	profileRepository := repository.NewProfileRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	metricsRepository := repository.NewMetricsRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	feedRepository := repository.NewFeedRepository(database)

	// Services
	metrics := telemetry.New()
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	notifier := service.NewNotifier(publisher, emailService, userRepository, metrics)
	metricsService := service.NewMetricsService(database, metricsRepository, feedRepository, notifier, metrics)
	goalService := service.NewGoalService(database, goalRepository, metrics)
	feedService := service.NewFeedService(feedRepository, notifier, metrics, cfg.FeedPageSize)
	authService := service.NewAuthService(
		database,
		userRepository,
		profileRepository,
		tokenRepository,
		metricsService,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenMagicLinkExpiry,
	)
	userService := service.NewUserService(userRepository)
	profileService := service.NewProfileService(profileRepository)
	exportService := service.NewExportService(userRepository, profileRepository, metricsRepository, goalRepository, feedRepository, fileStorage)

	pageService := service.NewPageService(cfg.ContentPath, cfg.IsDevelopment())
	err = pageService.LoadPages()
	if err != nil {
		slog.Warn("failed to load content pages", "error", err)
	}

	var resetter service.Resetter
	switch {
	case cfg.DemoResetCommand != "":
		resetter = &service.CommandResetter{Command: cfg.DemoResetCommand}
	case cfg.DemoSeedS3Key != "" && fileStorage != nil:
		resetter = service.NewSeedResetter(database, service.StoredSeed(fileStorage, cfg.DemoSeedS3Key),
			userRepository, profileRepository, metricsRepository, goalRepository, feedRepository)
	default:
		resetter = service.NewSeedResetter(database, service.EmbeddedSeed(respectcircle.DemoSeed),
			userRepository, profileRepository, metricsRepository, goalRepository, feedRepository)
	}
	demoService := service.NewDemoService(resetter, cfg.DemoEnabled, cfg.DemoResetTimeout, metrics)

	var jobs *scheduler.Scheduler
	if cfg.RolloverEnabled {
		jobs, err = scheduler.New(metricsService, tokenRepository, cfg.Location())
		if err != nil {
			database.Close()
			publisher.Close()
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
	}

	return &App{
		Cfg:       cfg,
		DB:        database,
		Events:    publisher,
		Telemetry: metrics,
		Scheduler: jobs,

		AuthService:    authService,
		UserService:    userService,
		ProfileService: profileService,
		EmailService:   emailService,
		MetricsService: metricsService,
		GoalService:    goalService,
		FeedService:    feedService,
		DemoService:    demoService,
		ExportService:  exportService,
		PageService:    pageService,
	}, nil
}

// Start launches the background jobs.
func (a *App) Start() {
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}
}

// OnClose registers fn to run when the app is closed, before the database
// connection is released.
func (a *App) OnClose(fn func()) {
	a.onClose = append(a.onClose, fn)
}

func (a *App) Close() error {
	for _, fn := range a.onClose {
		fn()
	}
	a.onClose = nil
	if a.Scheduler != nil {
		err := a.Scheduler.Stop()
		if err != nil {
			slog.Error("failed to stop scheduler", "error", err)
		}
	}
	if a.Events != nil {
		a.Events.Close()
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
