// Package main - точка входа schoolctl, консольного клиента школьного учёта.
//
// Каждая подкоманда соответствует одной операции school.Service:
// флаги разбираются здесь, вся бизнес-логика живёт в internal/.
//
// Коды выхода:
//   - 0: операция выполнена
//   - 1: операция отклонена (неверный ввод, нет прав, нет записи)
//   - 2: сбой хранилища или неверный вызов
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/alem-hub/school-records/config"
	"github.com/alem-hub/school-records/internal/application/eventhandler"
	"github.com/alem-hub/school-records/internal/application/school"
	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/domain/shared"
	"github.com/alem-hub/school-records/internal/infrastructure/messaging"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/badger"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/resilient"
	"github.com/alem-hub/school-records/pkg/logger"
	"github.com/alem-hub/school-records/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Ctrl+C отменяет операции удалённых хранилищ
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args))
}

func run(ctx context.Context, args []string) int {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg, os.Stderr)
	log.Debug("starting schoolctl",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"backend", cfg.Storage.Backend,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "backend", cfg.Storage.Backend, "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	defer func() {
		if err := backend.store.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS И АУДИТ
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer bus.Close()

	var sink *logger.Logger
	if path := cfg.Observability.AuditFile; path != "" {
		var closer io.Closer
		sink, closer, err = logger.OpenFile(path, logger.LevelInfo)
		if err != nil {
			log.Error("failed to open audit file", "path", path, "error", err)
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		defer closer.Close()
	}
	audit := eventhandler.NewAuditTrailHandler(log, sink, eventhandler.DefaultAuditTrailConfig())
	if err := audit.Register(bus); err != nil {
		log.Error("failed to register audit trail", "error", err)
		return 2
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. СЕРВИС И CLI
	// ─────────────────────────────────────────────────────────────────────────
	svc := school.NewService(school.Dependencies{
		Store:            backend.store,
		Publisher:        bus,
		Clock:            timeutil.NewClock(cfg.App.Location),
		Policy:           cfg.Features,
		ReportWindowDays: cfg.School.ReportWindowDays,
	})

	cli := &commandLine{
		svc:    svc,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	if backend.migrator != nil {
		cli.migrator = backend.migrator
	}

	return exitCode(cli.run(ctx, args), log, os.Stderr)
}

// exitCode печатает итог операции и возвращает код выхода.
func exitCode(err error, log *slog.Logger, w io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errHelp):
		return 2
	case shared.IsRejection(err):
		fmt.Fprintf(w, "false: %s\n", rejectionMessage(err))
		return 1
	default:
		log.Error("operation failed", "error", err)
		fmt.Fprintf(w, "error: %v\n", err)
		return 2
	}
}

// rejectionMessage достаёт из цепочки человекочитаемое сообщение DomainError.
func rejectionMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

type backend struct {
	store    document.Store
	migrator *postgres.Migrator // только для postgres
}

// openBackend открывает хранилище, выбранное STORAGE_BACKEND. Удалённые
// бэкенды оборачиваются в resilient.Store.
func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backend, error) {
	resilience := resilient.Config{
		MaxAttempts:      cfg.Resilience.MaxAttempts,
		BreakerThreshold: cfg.Resilience.BreakerThreshold,
		BreakerTimeout:   cfg.Resilience.BreakerTimeout,
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return &backend{store: memory.NewStore()}, nil

	case config.BackendBadger:
		store, err := badger.Open(badger.Config{
			Path:       cfg.Storage.BadgerPath,
			InMemory:   cfg.Storage.BadgerInMemory,
			SyncWrites: cfg.Storage.BadgerSyncWrites,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		return &backend{store: store}, nil

	case config.BackendRedis:
		rc := redis.DefaultConfig()
		rc.URL = cfg.Redis.URL
		rc.Host = cfg.Redis.Host
		rc.Port = cfg.Redis.Port
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		rc.KeyPrefix = cfg.Redis.KeyPrefix
		rc.PoolSize = cfg.Redis.PoolSize
		rc.DialTimeout = cfg.Redis.DialTimeout
		rc.ReadTimeout = cfg.Redis.ReadTimeout
		rc.WriteTimeout = cfg.Redis.WriteTimeout

		store, err := redis.NewStore(rc, log)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return &backend{store: resilient.Wrap(store, config.BackendRedis, resilience, log)}, nil

	case config.BackendPostgres:
		pc := postgres.DefaultConfig()
		pc.URL = cfg.Database.URL
		pc.MaxConns = cfg.Database.MaxConns
		pc.MinConns = cfg.Database.MinConns
		pc.MaxConnLifetime = cfg.Database.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
		pc.ConnectTimeout = cfg.Database.ConnectTimeout

		conn, err := postgres.NewConnection(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		migrator := postgres.NewMigrator(conn)
		if cfg.Database.MigrateOnStart {
			applied, err := migrator.Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("postgres: %w", err)
			}
			if len(applied) > 0 {
				log.Info("applied migrations", "versions", applied)
			}
		}
		store := postgres.NewStore(conn, log)
		return &backend{
			store:    resilient.Wrap(store, config.BackendPostgres, resilience, log),
			migrator: migrator,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает slog: JSON в production, текст в остальных средах.
// Журнал пишется в stderr, stdout остаётся для результатов команд.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Observability.LogLevel),
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	if cfg.IsProduction() || cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return level
}
