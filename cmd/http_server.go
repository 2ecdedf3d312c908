package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smuchara/pollstack/internal"
	"github.com/smuchara/pollstack/internal/auth"
	authpg "github.com/smuchara/pollstack/internal/auth/postgres"
	"github.com/smuchara/pollstack/internal/core/events"
	"github.com/smuchara/pollstack/internal/department"
	departmentpg "github.com/smuchara/pollstack/internal/department/postgres"
	"github.com/smuchara/pollstack/internal/notification"
	"github.com/smuchara/pollstack/internal/organization"
	organizationpg "github.com/smuchara/pollstack/internal/organization/postgres"
	"github.com/smuchara/pollstack/internal/permission"
	permissionpg "github.com/smuchara/pollstack/internal/permission/postgres"
	"github.com/smuchara/pollstack/internal/poll"
	pollpg "github.com/smuchara/pollstack/internal/poll/postgres"
	"github.com/smuchara/pollstack/internal/presence"
	presencepg "github.com/smuchara/pollstack/internal/presence/postgres"
	"github.com/smuchara/pollstack/internal/transport/rest"
	"github.com/smuchara/pollstack/internal/vote"
	votepg "github.com/smuchara/pollstack/internal/vote/postgres"
	"github.com/smuchara/pollstack/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Router     *chi.Mux
	Logger     *slog.Logger
	Dispatcher *notification.Dispatcher
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if deps.Dispatcher != nil {
			deps.Dispatcher.Shutdown()
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// GORM rides on the same connection pool as sqlx.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	// Repositories
	authRepo := authpg.NewRepository(db)
	orgRepo := organizationpg.NewOrganizationRepository(gormDB)
	deptRepo := departmentpg.NewDepartmentRepository(gormDB)
	permRepo := permissionpg.NewPermissionRepository(gormDB)
	pollRepo := pollpg.NewPollRepository(gormDB)
	tokenRepo := presencepg.NewTokenRepository(gormDB)
	voteRepo := votepg.NewVoteRepository(gormDB)

	// Services
	eventBus := events.NewEventBus(lg)

	var dispatcher *notification.Dispatcher
	if config.Notifications.WebhookURL != "" {
		dispatcher = notification.NewDispatcher(notification.Config{
			WebhookURL:     config.Notifications.WebhookURL,
			RequestTimeout: config.Notifications.RequestTimeout,
			MaxWorkers:     config.Notifications.MaxWorkers,
			JobQueueSize:   config.Notifications.QueueSize,
		}, lg)
		notification.NewEventHandler(dispatcher, lg).RegisterEventHandlers(eventBus)
	}

	orgService := organization.NewService(orgRepo, lg)
	deptService := department.NewService(deptRepo, lg)
	permService := permission.NewService(permRepo, lg)
	pollService := poll.NewService(pollRepo, deptService, eventBus, lg)
	presenceService := presence.NewService(tokenRepo, pollService, eventBus, lg,
		config.Voting.QRTTL(), config.Voting.AccessTTL())
	voteService := vote.NewService(voteRepo, pollService, presenceService, authRepo, eventBus, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, permService, tokenGen, config.Security.BCryptCost)

	// Handlers
	handlers := rest.Handlers{
		Auth:       auth.NewHandler(authService),
		Poll:       poll.NewHandler(pollService),
		Presence:   presence.NewHandler(presenceService, pollService, config.Server.BaseURL, config.Voting.QRImageSize),
		Vote:       vote.NewHandler(voteService, pollService),
		Permission: permission.NewHandler(permService),
		Department: department.NewHandler(deptService),
	}

	rbac := auth.NewRBACAuthorization(&auth.DefaultPermissionChecker{}, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, db, handlers, rbac, orgService, lg)

	return &Dependencies{
		Config:     config,
		Logger:     lg,
		DB:         db,
		Router:     router,
		Dispatcher: dispatcher,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
