package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/impulsa-inbox/internal/config"
	httpcontroller "github.com/vadim/impulsa-inbox/internal/controller/http"
	"github.com/vadim/impulsa-inbox/internal/database"
	convdao "github.com/vadim/impulsa-inbox/internal/domain/conversation/dao"
	convpolicy "github.com/vadim/impulsa-inbox/internal/domain/conversation/policy"
	convservice "github.com/vadim/impulsa-inbox/internal/domain/conversation/service"
	notifdao "github.com/vadim/impulsa-inbox/internal/domain/notification/dao"
	notifpolicy "github.com/vadim/impulsa-inbox/internal/domain/notification/policy"
	notifservice "github.com/vadim/impulsa-inbox/internal/domain/notification/service"
	"github.com/vadim/impulsa-inbox/internal/domain/notification/scheduler"
	"github.com/vadim/impulsa-inbox/internal/domain/notification/subscriber"
	userdao "github.com/vadim/impulsa-inbox/internal/domain/user/dao"
	userservice "github.com/vadim/impulsa-inbox/internal/domain/user/service"
	"github.com/vadim/impulsa-inbox/internal/events"
	authmw "github.com/vadim/impulsa-inbox/internal/httpx/middleware"
	"github.com/vadim/impulsa-inbox/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Exactly one of these is set, depending on the configured driver
	pgPool *pgxpool.Pool
	sqlDB  *sql.DB

	repos repositories
	bus   *events.Bus

	// Domain policies (interfaces for HTTP handlers)
	conversationPolicy *convpolicy.Policy
	notificationPolicy *notifpolicy.Policy

	// Scheduler purging old read notifications
	retention *scheduler.Scheduler
}

// repositories groups the stores of the configured driver
type repositories struct {
	conversations convservice.ConversationRepository
	messages      convservice.MessageRepository
	notifications notifservice.NotificationRepository
	profiles      userservice.ProfileRepository
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := NewLogger(cfg.Log)

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(ctx); err != nil {
		app.closeDatabase()
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	// Initialize domain layers
	if err := app.initDomains(ctx); err != nil {
		app.closeDatabase()
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	// Register routes
	if err := app.registerRoutes(); err != nil {
		app.closeDatabase()
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	// Initialize HTTP server
	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initInfrastructure opens the database, applies migrations and builds the stores
func (a *App) initInfrastructure(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN, database.PoolConfig{
			MaxConns:     a.cfg.Database.MaxConns,
			MinConns:     a.cfg.Database.MinConns,
			ConnLifetime: a.cfg.Database.ConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pgPool = pool

		if a.cfg.Database.AutoMigrate {
			if err := database.MigratePostgres(ctx, pool, a.logger); err != nil {
				return fmt.Errorf("migrating postgres: %w", err)
			}
		}

		a.repos = repositories{
			conversations: convdao.NewConversationPostgres(pool),
			messages:      convdao.NewMessagePostgres(pool),
			notifications: notifdao.NewNotificationPostgres(pool),
			profiles:      userdao.NewProfilePostgres(pool),
		}

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, a.cfg.Database.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite: %w", err)
		}
		a.sqlDB = db

		if a.cfg.Database.AutoMigrate {
			if err := database.MigrateSQLite(ctx, db, a.logger); err != nil {
				return fmt.Errorf("migrating sqlite: %w", err)
			}
		}

		a.repos = repositories{
			conversations: convdao.NewConversationSQLite(db),
			messages:      convdao.NewMessageSQLite(db),
			notifications: notifdao.NewNotificationSQLite(db),
			profiles:      userdao.NewProfileSQLite(db),
		}

	default:
		return fmt.Errorf("unsupported database driver %q", a.cfg.Database.Driver)
	}

	a.logger.Info("database ready", "driver", a.cfg.Database.Driver)
	return nil
}

// initDomains initializes domain layers (Service, Policy) and the event fan-out
func (a *App) initDomains(ctx context.Context) error {
	var images userservice.ImageResolver
	if a.cfg.S3.Enabled {
		s3Storage, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
			PublicURL:       a.cfg.S3.PublicURL,
			PresignTTL:      a.cfg.S3.PresignTTL,
		})
		if err != nil {
			return fmt.Errorf("creating s3 storage: %w", err)
		}
		images = s3Storage
	}

	directory := userservice.New(a.repos.profiles, images, a.logger)

	a.bus = events.NewBus(events.Config{
		Workers:        a.cfg.Events.Workers,
		QueueSize:      a.cfg.Events.QueueSize,
		HandlerTimeout: a.cfg.Events.HandlerTimeout,
	}, a.logger)

	notifService := notifservice.New(a.repos.notifications, a.logger)
	a.notificationPolicy = notifpolicy.New(notifService, images)

	subscriber.New(notifService, directory, a.logger).Register(a.bus)

	if a.cfg.Retention.Enabled {
		a.retention = scheduler.New(notifService, scheduler.Config{
			Interval: a.cfg.Retention.Interval,
			MaxAge:   a.cfg.Retention.MaxAge,
		}, a.logger)
	}

	convService := convservice.New(a.repos.conversations, a.repos.messages, a.bus, a.logger)
	a.conversationPolicy = convpolicy.New(convService, directory)

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// Swagger UI documentation
	docs, err := httpcontroller.NewDocsHandler("Impulsa Inbox API", OpenAPISpec)
	if err != nil {
		return err
	}
	docs.RegisterRoutes(a.router)

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.JWTAuth(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer))

		httpcontroller.NewConversationHandler(a.conversationPolicy).RegisterRoutes(r)
		httpcontroller.NewNotificationHandler(a.notificationPolicy).RegisterRoutes(r)
	})

	return nil
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

// Events returns the publisher other modules use to trigger notifications
func (a *App) Events() events.Publisher {
	return a.bus
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler reports whether the database is reachable
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.pingDatabase(ctx); err != nil {
		a.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (a *App) pingDatabase(ctx context.Context) error {
	switch {
	case a.pgPool != nil:
		return a.pgPool.Ping(ctx)
	case a.sqlDB != nil:
		return a.sqlDB.PingContext(ctx)
	}
	return errors.New("database not initialized")
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	a.bus.Start(ctx)

	// Start retention scheduler if enabled
	if a.retention != nil {
		a.retention.Start(ctx)
	}

	// Channel to receive errors from server
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown(context.Background())
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var shutdownErr error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("shutting down HTTP server: %w", err)
	}

	// Stop scheduler
	if a.retention != nil {
		a.retention.Stop()
	}

	// No request is in flight anymore, so no new events arrive; deliver the queued ones
	a.bus.Stop()
	a.closeDatabase()

	a.logger.Info("shutdown complete")
	return shutdownErr
}

func (a *App) closeDatabase() {
	if a.pgPool != nil {
		a.pgPool.Close()
		a.pgPool = nil
	}
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.logger.Warn("closing sqlite", "error", err)
		}
		a.sqlDB = nil
	}
}
