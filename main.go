// Package main is the entry point of the Imobflow CRM API
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imobflow/crm-api/app/handlers"
	"github.com/imobflow/crm-api/app/middleware"
	"github.com/imobflow/crm-api/app/router"
	"github.com/imobflow/crm-api/app/scheduler"
	"github.com/imobflow/crm-api/app/services"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"github.com/imobflow/crm-api/config"
	"github.com/imobflow/crm-api/repository"
	"github.com/imobflow/crm-api/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title Imobflow CRM API
// @version 1.0
// @description Lead, business and team management for real-estate brokerages.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// Application represents the main application structure
type Application struct {
	router    router.Router
	hub       *services.NotificationHubImpl
	logger    *zap.Logger
	closers   []func() error
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- app.router.Start(address)
	}()

	select {
	case <-sigChan:
		logger.Info("shutting down gracefully")
	case err := <-serverErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	app.shutdown(cfg.Server.ShutdownTimeout)
	logger.Info("server stopped")
}

func (a *Application) shutdown(timeout time.Duration) {
	for _, fn := range a.stopFuncs {
		fn()
	}

	// open event streams only end once their subscriptions close
	a.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.router.Shutdown(ctx); err != nil {
		a.logger.Error("error during shutdown", zap.Error(err))
	}

	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("error releasing resource", zap.Error(err))
		}
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: utils.UTCNow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

// initializeCache connects to redis when the event relay needs it
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established", zap.Int("db", opt.DB))
	return rc, nil
}

// startCacheHealthMonitor pings redis periodically; the returned function stops it
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows and handlers
func initializeApplication(cfg *config.AppConfig, logger *zap.Logger) (*Application, error) {
	app := &Application{logger: logger}

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, sqlDB.Close)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	clientRepo := repository.NewClientRepository(db)
	sessionRepo := repository.NewCallModeSessionRepository(db)
	tx := repository.NewTransactor(db)

	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Real-time events. With the relay enabled every instance hears every other instance's events.
	app.hub = services.NewNotificationHub(cfg.Notification.SubscriberBuffer, logger.Named("hub"))
	var publisher businessflow.EventPublisher = app.hub

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		app.closers = append(app.closers, rc.Close)
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval, logger))

		if cfg.Notification.RedisRelay {
			relay := services.NewRedisRelay(rc, app.hub, cfg.Notification.RedisChannel, logger.Named("relay"))
			app.stopFuncs = append(app.stopFuncs, relay.Start(context.Background()))
			publisher = relay
			logger.Info("event relay enabled", zap.String("channel", cfg.Notification.RedisChannel), zap.String("instance", relay.InstanceID()))
		}
	}

	// Business flows
	leadFlow := businessflow.NewLeadFlow(leadRepo, businessRepo, userRepo, tx, publisher, cfg.Rules, logger)
	businessFlow := businessflow.NewBusinessFlow(businessRepo, leadRepo, tx, publisher, cfg.Rules, logger)
	userFlow := businessflow.NewUserFlow(userRepo, teamRepo, leadRepo, cfg.Security, logger)
	teamFlow := businessflow.NewTeamFlow(teamRepo, userRepo, tx, logger)
	clientFlow := businessflow.NewClientFlow(clientRepo, logger)
	sessionFlow := businessflow.NewCallModeSessionFlow(sessionRepo, logger)
	authFlow := businessflow.NewAuthFlow(userRepo, tokenService, logger)

	timeout := cfg.Server.RequestTimeout
	h := router.Handlers{
		Auth:            handlers.NewAuthHandler(authFlow, timeout, logger),
		Lead:            handlers.NewLeadHandler(leadFlow, timeout, logger),
		Business:        handlers.NewBusinessHandler(businessFlow, timeout, logger),
		User:            handlers.NewUserHandler(userFlow, timeout, logger),
		Team:            handlers.NewTeamHandler(teamFlow, timeout, logger),
		Client:          handlers.NewClientHandler(clientFlow, timeout, logger),
		CallModeSession: handlers.NewCallModeSessionHandler(sessionFlow, timeout, logger),
		Event:           handlers.NewEventHandler(app.hub, cfg.Notification.SubscriberBuffer, cfg.Notification.HeartbeatInterval, logger),
	}

	app.router = router.NewFiberRouter(cfg, h, middleware.NewAuthMiddleware(tokenService), sqlDB, logger)

	if cfg.Rules.StaleLeadEnabled {
		stale := scheduler.NewStaleLeadScheduler(leadRepo, publisher, cfg.Rules.StaleLeadAfter, cfg.Rules.StaleLeadInterval, logger.Named("scheduler"))
		app.stopFuncs = append(app.stopFuncs, stale.Start(context.Background()))
	}

	return app, nil
}
