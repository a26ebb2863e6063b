package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/volunteerconnect/event-registration/internal/config"
	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/handler"
	"github.com/volunteerconnect/event-registration/internal/logger"
	"github.com/volunteerconnect/event-registration/internal/middleware"
	"github.com/volunteerconnect/event-registration/internal/queue"
	"github.com/volunteerconnect/event-registration/internal/repository"
	"github.com/volunteerconnect/event-registration/internal/router"
	"github.com/volunteerconnect/event-registration/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("database ready", "driver", db.Driver)

	// ---- repositories ----
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	regs := repository.NewRegistrationRepo(db)
	attendance := repository.NewAttendanceRepo(db)
	notifications := repository.NewNotificationRepo(db)

	// ---- notifications ----
	inbox := service.NewInboxNotifier(notifications)
	var notifier service.Notifier = inbox
	var consumer *queue.Consumer
	if cfg.Notify.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.Notify.RabbitURL, cfg.Notify.Queue, log)
		defer pub.Close()
		notifier = pub
		if cfg.Notify.ConsumerEnabled {
			consumer = queue.NewConsumer(cfg.Notify.RabbitURL, cfg.Notify.Queue, inbox, log)
		}
		log.Info("notifications via rabbitmq", "queue", cfg.Notify.Queue, "consumer", consumer != nil)
	}

	// ---- services ----
	catalog := service.NewEventCatalog(db, events, regs, log)
	ledger := service.NewRegistrationLedger(db, catalog, regs, notifier, log)
	attendanceLedger := service.NewAttendanceLedger(db, catalog, ledger, regs, attendance, notifier, log)
	stats := service.NewStatsAggregator(users, events, regs, service.StatsConfig{
		HoursPerEvent:        cfg.Stats.HoursPerEvent,
		ImpactPointsPerEvent: cfg.Stats.ImpactPointsPerEvent,
		RecentEvents:         cfg.Stats.RecentEvents,
	}, log)

	// ---- redis-backed middleware ----
	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		return err
	}
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and caching disabled", "addr", redisCfg.Addr)
	} else {
		defer rdb.Close()
	}
	limit := middleware.NewTokenBucket(rlCfg, rdb, log)
	cache := middleware.NewRedisCache(cacheCfg, rdb, log)

	// ---- http ----
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(log))

	eventHandler := handler.NewEventHandler(catalog, ledger)
	dashboard := handler.NewDashboardHandler(stats)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, log), cfg.JWTSecret)
	router.RegisterPublic(e, eventHandler, cache)
	router.RegisterVolunteer(e, handler.NewRegistrationHandler(ledger), dashboard, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, eventHandler, handler.NewAttendanceHandler(attendanceLedger), dashboard, cfg.JWTSecret, limit)
	router.RegisterNotifications(e, handler.NewNotificationHandler(service.NewInbox(notifications, log)), cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if consumer != nil {
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
