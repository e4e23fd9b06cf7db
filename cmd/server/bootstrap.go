package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/cabinet/internal/api"
	"github.com/charlesng35/cabinet/internal/app"
	"github.com/charlesng35/cabinet/internal/app/scheduler"
	"github.com/charlesng35/cabinet/internal/cache"
	"github.com/charlesng35/cabinet/internal/database"
	"github.com/charlesng35/cabinet/internal/handlers"
	"github.com/charlesng35/cabinet/internal/providers"
	"github.com/charlesng35/cabinet/internal/reminders"
	"github.com/charlesng35/cabinet/internal/services"
	"github.com/charlesng35/cabinet/pkg/logger"
	"github.com/charlesng35/cabinet/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server and the reminder scheduler.
type runtimeStack struct {
	DB            *gorm.DB
	Redis         *redis.Client
	Notifications *services.NotificationService
	Engine        *reminders.Engine
	Scheduler     *scheduler.Scheduler
	Router        *gin.Engine
}

// bootstrapRuntime initialises the database, the cycle lock, the reminder engine, and the HTTP router.
// The scheduler is built but not started.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Reminders.Location()
	if err != nil {
		return nil, err
	}
	hour, minute, err := cfg.Reminders.Trigger()
	if err != nil {
		return nil, err
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Notifications, err = services.NewNotificationService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	stack.Engine, err = buildEngine(cfg, stack.DB, stack.Notifications, loc, log)
	if err != nil {
		return nil, err
	}

	locker, err := stack.buildLocker(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Scheduler, err = scheduler.New(stack.Engine, loc, hour, minute,
		scheduler.WithLocker(locker),
		scheduler.WithLockTTL(cfg.Reminders.LockTTL),
		scheduler.WithRunOnStart(cfg.Reminders.RunOnStart),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise scheduler: %w", err)
	}

	var status handlers.StatusProvider
	if cfg.Reminders.Enabled {
		status = stack.Scheduler
	}

	stack.Router, err = api.NewRouter(stack.DB, cfg, stack.Notifications, status)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func buildEngine(cfg *app.Config, db *gorm.DB, store *services.NotificationService, loc *time.Location, log *zap.Logger) (*reminders.Engine, error) {
	events, err := providers.NewGormEventProvider(db)
	if err != nil {
		return nil, err
	}
	invoices, err := providers.NewGormInvoiceProvider(db)
	if err != nil {
		return nil, err
	}
	directory, err := providers.NewGormUserDirectory(db)
	if err != nil {
		return nil, err
	}

	upcoming, err := reminders.NewUpcomingEventEvaluator(events, loc)
	if err != nil {
		return nil, err
	}
	overdue, err := reminders.NewOverdueInvoiceEvaluator(invoices, loc)
	if err != nil {
		return nil, err
	}
	dueToday, err := reminders.NewDueTodayTaskEvaluator(events, loc)
	if err != nil {
		return nil, err
	}

	guard, err := reminders.NewGuard(store, loc)
	if err != nil {
		return nil, err
	}

	dispatchOpts := []reminders.DispatcherOption{
		reminders.WithUserDirectory(directory),
		reminders.WithCallTimeout(cfg.Reminders.CallTimeout),
	}
	if cfg.Email.SMTP.Enabled {
		mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if err != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", err)
		}
		dispatchOpts = append(dispatchOpts, reminders.WithMailer(mailer))
	} else {
		log.Warn("smtp disabled; critical reminders will be stored without email")
	}

	dispatcher, err := reminders.NewDispatcher(store, loc, dispatchOpts...)
	if err != nil {
		return nil, err
	}

	return reminders.NewEngine(guard, dispatcher,
		[]reminders.Evaluator{upcoming, overdue, dueToday},
		reminders.WithQueryTimeout(cfg.Reminders.CallTimeout),
	)
}

// buildLocker prefers Redis for the daily cycle lock and falls back to the database table.
func (s *runtimeStack) buildLocker(ctx context.Context, cfg *app.Config, log *zap.Logger) (cache.Locker, error) {
	holder := lockHolder()

	if cfg.Cache.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; falling back to database cycle lock", zap.Error(err))
		} else {
			s.Redis = client
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
			return cache.NewRedisLocker(client, holder)
		}
	}

	return cache.NewDatabaseLocker(s.DB, holder)
}

func lockHolder() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "cabinet"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// Shutdown stops the scheduler and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		select {
		case <-s.Scheduler.Stop().Done():
		case <-ctx.Done():
			log.Warn("reminder cycle still running at shutdown")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
