package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/acordao-extractor/internal/artifact"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

type Config struct {
	URL             string // sqlite file path, sqlite://path or postgres://...
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB is an open relational store of either dialect.
type DB struct {
	dialect string
	dsn     string
	path    string
	drv     *entsql.Driver
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// Target resolves a URL into a dialect, a driver DSN and, for SQLite, the file path.
func Target(url string) (dialectName, dsn, path string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return dialect.Postgres, url, ""
	case strings.HasPrefix(url, "sqlite://"):
		path = strings.TrimPrefix(url, "sqlite://")
	default:
		path = url
	}
	path = filepath.Clean(path)
	return dialect.SQLite, path + "?" + sqlitePragmas, path
}

// Open connects, wraps the connection for ent's SQL builder and applies
// pending migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	name, dsn, path := Target(cfg.URL)
	d := &DB{dialect: name, dsn: dsn, path: path, logger: logger}

	logger.Info("connecting to database", "dialect", name, "path", path)
	var db *sql.DB
	switch name {
	case dialect.Postgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		d.pool = pool
		db = stdlib.OpenDBFromPool(pool)
	default:
		var err error
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			logger.Error("failed to open sqlite", "path", path, "error", err)
			return nil, err
		}
		// one writer; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}
	d.drv = entsql.OpenDB(name, db)

	if err := d.HealthCheck(ctx, cfg.DialTimeout); err != nil {
		d.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := d.Migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", "dialect", name)
	return d, nil
}

func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "acordao-extractor"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	return pgxpool.NewWithConfig(ctx, pc)
}

// Dialect returns the ent dialect name.
func (d *DB) Dialect() string { return d.dialect }

// Path returns the SQLite file path, empty for PostgreSQL.
func (d *DB) Path() string { return d.path }

// SQL exposes the underlying handle.
func (d *DB) SQL() *sql.DB { return d.drv.DB() }

// Close closes the database connections gracefully
func (d *DB) Close() {
	d.logger.Debug("closing database connections")
	if d.drv != nil {
		if err := d.drv.Close(); err != nil {
			d.logger.Error("failed to close sql driver", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	d.logger.Debug("pinging database")
	return d.drv.DB().PingContext(ctx)
}

// RetireFile moves an existing SQLite database aside with a versioned name
// so the next Open starts empty. It returns the backup path, or "" when
// there was no file.
func RetireFile(path string, logger *slog.Logger) (string, error) {
	store := artifact.NewStore(filepath.Dir(path), logger)
	name, err := store.Retire(filepath.Base(path))
	if err != nil || name == "" {
		return "", err
	}
	return store.Path(name), nil
}
