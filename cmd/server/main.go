// Command server runs the bistro terminal-facing TCP listener (spec.md
// §6.1) alongside the Admin HTTP Gateway (spec.md §6.3), sharing one
// connection pool, repository set, and domain components.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bistro-server/internal/adminhttp"
	"bistro-server/internal/auth"
	"bistro-server/internal/cache"
	"bistro-server/internal/config"
	"bistro-server/internal/dispatcher"
	"bistro-server/internal/events"
	infraauth "bistro-server/internal/infrastructure/auth"
	"bistro-server/internal/infrastructure/shutdown"
	"bistro-server/internal/metrics"
	"bistro-server/internal/notify"
	"bistro-server/internal/pool"
	"bistro-server/internal/registry"
	"bistro-server/internal/reports"
	"bistro-server/internal/repository/postgres"
	"bistro-server/internal/reservation"
	"bistro-server/internal/scheduler"
	"bistro-server/internal/seating"
	"bistro-server/internal/tracing"
	"bistro-server/pkg/log"
	"bistro-server/pkg/server"
	"bistro-server/pkg/store"
)

func main() {
	logger := log.New()
	defer func() { _ = log.SyncLogger(logger) }()

	if err := run(logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTel.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	if err := metrics.Register(); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	pg := pool.New(cfg.Postgres.DSN, cfg.Server.PoolSize, logger)
	if err := pg.TestOpen(ctx); err != nil {
		return fmt.Errorf("postgres not reachable: %w", err)
	}
	pg.StartEvictor(ctx)

	repos := postgres.New(pg, logger)
	if err := repos.Users.ResetAllLoginFlags(ctx); err != nil {
		logger.Warn("reset login flags on startup failed", zap.Error(err))
	}

	bus, err := notify.Dial(cfg.NATS.URL, logger)
	if err != nil {
		logger.Warn("notification bus unavailable, continuing without live pushes", zap.Error(err))
		bus = nil
	}

	outbox, closeOutbox, err := events.DialOutbox(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Warn("order event outbox unavailable, continuing without it", zap.Error(err))
		closeOutbox = func() {}
	}

	auditLog, closeAudit, err := events.DialAuditLog(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.Warn("audit log unavailable, continuing without it", zap.Error(err))
		closeAudit = func(context.Context) {}
	}

	redisStore, err := store.NewRedis(cfg.Redis.URL)
	if err != nil {
		logger.Warn("redis unavailable, opening hours cache runs L1-only", zap.Error(err))
	}

	hoursCache := cache.New(redisStore.Connection, repos.Hours.GetForDate, logger)

	qrSigner := infraauth.NewQRSigner(cfg.JWT.Secret, cfg.JWT.TTL)
	sessions := auth.New(repos.Users, qrSigner, logger)

	engine := reservation.New(repos.Orders, repos.Tables, hoursCache)
	seatingCtl := seating.New(repos.Orders, repos.Tables, engine, outbox, auditLog, bus, logger)
	sched := scheduler.New(repos.Orders, outbox, auditLog, bus, logger)
	reg := registry.New(bus, logger)

	var chDB *sql.DB
	clickhouseClient, err := store.New(store.Config{
		Addr:     cfg.ClickHouse.Addr,
		Database: cfg.ClickHouse.Database,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	})
	if err != nil {
		logger.Warn("clickhouse unavailable, reports run on whatever source-of-truth fallback the store supports", zap.Error(err))
	} else {
		chDB = clickhouseClient.Connection
	}
	reportsStore := reports.New(chDB, repos.Orders, logger)

	disp := dispatcher.New(sessions, seatingCtl, engine, repos.Orders, repos.Tables, repos.Hours, hoursCache, repos.Users, reportsStore, reg, logger)

	jwtService := infraauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.TTL, 7*24*time.Hour, "bistro-server")
	adminChecks := map[string]func() string{
		"postgres": func() string {
			if err := pg.TestOpen(ctx); err != nil {
				return "down"
			}
			return "up"
		},
		"redis": func() string {
			if redisStore.Connection == nil {
				return "down"
			}
			if err := redisStore.Connection.Ping(ctx).Err(); err != nil {
				return "down"
			}
			return "up"
		},
	}
	adminGateway := adminhttp.New(&adminhttp.Reports{
		Store:  reportsStore,
		Tables: repos.Tables,
		Hours:  repos.Hours,
	}, jwtService, adminChecks, logger)

	tcpServer, err := server.New(server.WithTCPDispatcher(disp, strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("bind tcp listener: %w", err)
	}

	var adminServer *server.Server
	if cfg.Admin.Enabled {
		adminServer, err = server.New(server.WithHTTPServer(adminGateway, strconv.Itoa(cfg.Admin.Port)))
		if err != nil {
			return fmt.Errorf("bind admin http server: %w", err)
		}
	}

	if err := tcpServer.Run(ctx, logger); err != nil {
		return fmt.Errorf("start tcp server: %w", err)
	}
	if adminServer != nil {
		if err := adminServer.Run(ctx, logger); err != nil {
			return fmt.Errorf("start admin server: %w", err)
		}
		logger.Info("admin gateway listening", zap.Int("port", cfg.Admin.Port))
	}

	go sched.Run(ctx)

	logger.Info("bistro server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
	)

	shutdownMgr := shutdown.NewManager(logger)
	shutdownMgr.RegisterHook(shutdown.PhaseStopAcceptingRequests, "stop_tcp_listener", func(ctx context.Context) error {
		return tcpServer.Stop(ctx)
	})
	if adminServer != nil {
		shutdownMgr.RegisterHook(shutdown.PhaseStopAcceptingRequests, "stop_admin_server", func(ctx context.Context) error {
			return adminServer.Stop(ctx)
		})
	}
	shutdownMgr.RegisterHook(shutdown.PhaseCleanup, "close_postgres_pool", func(ctx context.Context) error {
		pg.Close(ctx)
		return nil
	})
	shutdownMgr.RegisterHook(shutdown.PhaseCleanup, "close_event_outbox", func(ctx context.Context) error {
		closeOutbox()
		return nil
	})
	shutdownMgr.RegisterHook(shutdown.PhaseCleanup, "close_audit_log", func(ctx context.Context) error {
		closeAudit(ctx)
		return nil
	})
	shutdownMgr.RegisterHook(shutdown.PhaseCleanup, "close_notification_bus", func(ctx context.Context) error {
		if bus != nil {
			bus.Close()
		}
		return nil
	})
	shutdownMgr.RegisterHook(shutdown.PhaseCleanup, "flush_hours_cache", func(ctx context.Context) error {
		hoursCache.Flush()
		return nil
	})
	shutdownMgr.RegisterHook(shutdown.PhasePostShutdown, "shutdown_tracing", func(ctx context.Context) error {
		return shutdownTracing(ctx)
	})

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return shutdownMgr.Shutdown(shutdownCtx)
}
