package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/slotbooking/config"
	"github.com/Domenick1991/slotbooking/internal/audit"
	"github.com/Domenick1991/slotbooking/internal/cache"
	"github.com/Domenick1991/slotbooking/internal/kafka"
	"github.com/Domenick1991/slotbooking/internal/metrics"
	"github.com/Domenick1991/slotbooking/internal/repository"
	"github.com/Domenick1991/slotbooking/internal/service/catalog"
	"github.com/Domenick1991/slotbooking/internal/service/reservation"
	"github.com/Domenick1991/slotbooking/internal/service/sweeper"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// App holds the wired engine shared by the API server and the worker.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
	Store        repository.Store
	Cache        *cache.RedisCache
	Producer     *kafka.Producer
	Audit        *audit.Recorder
	Catalog      *catalog.CatalogService
	Reservations *reservation.ReservationService
	Sweeper      *sweeper.Sweeper

	ping    func(ctx context.Context) error
	closers []func()
}

// Build opens the configured store, migrates it and wires every service.
// Redis and Kafka are optional: without them the engine runs uncached and
// without event fan-out.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}
	ready := false
	defer func() {
		if !ready {
			app.Close()
		}
	}()

	if err := app.openStore(ctx); err != nil {
		return nil, err
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.New(app.Registry)

	if cfg.Redis.Enabled {
		rc := cache.NewRedisCache(cfg.Redis, cfg.Reservation.AvailabilityCacheTTL())
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, availability cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rc.Close()
		} else {
			app.Cache = rc
			app.closers = append(app.closers, func() { _ = rc.Close() })
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers, logger.Named("kafka"))
		if err := p.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unreachable at startup, event publishes may fail", zap.Error(err))
		}
		app.Producer = p
		app.closers = append(app.closers, func() { _ = p.Close() })
	}

	auditOpts := []audit.Option{
		audit.WithTimeout(cfg.Reservation.AuditTimeout()),
		audit.WithLogger(logger.Named("audit")),
		audit.WithMetrics(app.Metrics),
	}
	if app.Producer != nil {
		auditOpts = append(auditOpts, audit.WithProducer(app.Producer, cfg.Kafka.AuditTopic))
	}
	app.Audit = audit.NewRecorder(app.Store.Audit, auditOpts...)
	// Runs before the producer is closed: closers unwind in reverse.
	app.closers = append(app.closers, app.Audit.Close)

	schedule, err := catalog.ParseSchedule(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("parse catalog schedule: %w", err)
	}

	catalogOpts := []catalog.CatalogServiceOption{
		catalog.WithLogger(logger.Named("catalog")),
		catalog.WithMetrics(app.Metrics),
	}
	reservationOpts := []reservation.ReservationServiceOption{
		reservation.WithHoldTTL(cfg.Reservation.HoldTTL(), cfg.Reservation.MaxHoldTTL()),
		reservation.WithLogger(logger.Named("reservation")),
		reservation.WithMetrics(app.Metrics),
	}
	sweeperOpts := []sweeper.Option{
		sweeper.WithInterval(cfg.Worker.SweepInterval()),
		sweeper.WithLogger(logger.Named("sweeper")),
		sweeper.WithMetrics(app.Metrics),
	}
	// Only set when present: a nil *RedisCache inside an interface is not nil.
	if app.Cache != nil {
		catalogOpts = append(catalogOpts, catalog.WithCache(app.Cache))
		reservationOpts = append(reservationOpts, reservation.WithCache(app.Cache))
		sweeperOpts = append(sweeperOpts, sweeper.WithCache(app.Cache))
	}
	if app.Producer != nil && cfg.Kafka.NotificationsTopic != "" {
		reservationOpts = append(reservationOpts, reservation.WithNotifications(app.Producer, cfg.Kafka.NotificationsTopic))
	}

	app.Catalog = catalog.NewCatalogService(app.Store.Slots, app.Audit, schedule, catalogOpts...)
	app.Reservations = reservation.NewReservationService(app.Store.Slots, app.Store.Reservations, app.Audit, reservationOpts...)
	app.Sweeper = sweeper.New(app.Store.Slots, app.Audit, sweeperOpts...)
	ready = true
	return app, nil
}

func (a *App) openStore(ctx context.Context) error {
	db := a.Config.Database
	switch db.Driver {
	case config.DriverSQLite:
		sqlDB, err := repository.OpenSQLite(ctx, repository.SQLiteOptions{
			Path:         db.SQLite.Path,
			BusyTimeout:  db.SQLite.BusyTimeout(),
			MaxOpenConns: db.SQLite.MaxOpenConns,
		})
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.Store = repository.NewSQLiteStore(sqlDB)
		a.ping = sqlDB.PingContext
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	default:
		pool, err := pgxpool.New(ctx, db.DSN())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := repository.MigratePostgres(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		a.Store = repository.NewPGStore(pool)
		a.ping = pool.Ping
	}
	a.Logger.Info("store ready", zap.String("driver", db.Driver))
	return nil
}

// Ping checks the backing store.
func (a *App) Ping(ctx context.Context) error {
	if a.ping == nil {
		return errors.New("store not open")
	}
	return a.ping(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
