package cli

import (
	"context"
	"fmt"
	"io"

	"study-session/internal/app"
	"study-session/internal/config"
	"study-session/internal/infra/assistant"
	"study-session/internal/infra/memory"
	"study-session/internal/infra/postgres"
	infraredis "study-session/internal/infra/redis"
	"study-session/internal/infra/sqlite"
	"study-session/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// environment is everything a command needs, built from config.
type environment struct {
	cfg     config.Config
	log     *zap.Logger
	store   app.KVStore
	ledger  *app.Ledger
	client  *assistant.Client
	service *app.StudyService
	closers []func()
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", opts.configPath, err)
	}
	if opts.port != "" {
		cfg.Server.Port = opts.port
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config, out io.Writer) (*zap.Logger, error) {
	return logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File, Console: out})
}

// openEnvironment wires the ledger store, the answering service client and the study service.
func openEnvironment(ctx context.Context, opts *rootOptions, console io.Writer) (*environment, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, console)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	env := &environment{cfg: cfg, log: log}
	env.store, err = env.openStore(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.ledger = app.NewLedger(env.store,
		app.WithLedgerKey(cfg.Ledger.Key),
		app.WithLedgerLogger(log.Named("ledger")))
	env.client = assistant.NewClient(cfg.Assistant.BaseURL, config.TTLDuration(cfg.Assistant.Timeout, 0), log.Named("assistant"))
	env.service = app.NewStudyService(env.client, env.ledger, log)
	return env, nil
}

func (e *environment) openStore(ctx context.Context) (app.KVStore, error) {
	switch e.cfg.Ledger.Backend {
	case config.BackendMemory:
		return memory.NewKVStore(), nil

	case config.BackendSQLite, "":
		store, err := sqlite.Open(ctx, e.cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { _ = store.Close() })
		return store, nil

	case config.BackendRedis:
		if e.cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis addr not configured")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     e.cfg.Redis.Addr,
			Password: e.cfg.Redis.Password,
			DB:       e.cfg.Redis.DB,
		})
		e.closers = append(e.closers, func() { _ = client.Close() })
		return infraredis.NewKVStore(client, e.cfg.Redis.Prefix, config.TTLDuration(e.cfg.Redis.TTL, 0)), nil

	case config.BackendPostgres:
		if e.cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		if _, err := postgres.RunMigrations(ctx, e.cfg.Postgres.URL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, e.cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		e.closers = append(e.closers, pool.Close)
		return postgres.NewKVStore(pool), nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", e.cfg.Ledger.Backend)
	}
}

// Close releases store connections and flushes the logger.
func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	_ = e.log.Sync()
}
