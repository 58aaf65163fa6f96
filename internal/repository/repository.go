package repository

import (
	"context"
	"fmt"
	"strings"

	"microearn/pkg/logger"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Store is the key-value persistence adapter. Values are opaque blobs; a
// missing key is reported as ErrNotFound.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// SetMany writes all values or none of them.
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

type Config struct {
	Driver   string      `mapstructure:"driver"`
	Host     string      `mapstructure:"host"`
	Port     string      `mapstructure:"port"`
	User     string      `mapstructure:"user"`
	Password string      `mapstructure:"password"`
	Name     string      `mapstructure:"name"`
	Path     string      `mapstructure:"path"`
	Redis    RedisConfig `mapstructure:"redis"`
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverMemory:
		logger.Named("store").Info("Using in-memory store")
		return NewMemoryStore(), nil
	case DriverRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case DriverPgx, DriverPostgres, DriverSQLite:
		return New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Repository keeps blobs in a single SQL table. It works on PostgreSQL
// (pgx or lib/pq) and SQLite.
type Repository struct {
	db          *sqlx.DB
	placeholder squirrel.PlaceholderFormat
}

func New(ctx context.Context, cfg Config) (*Repository, error) {
	driver := strings.ToLower(cfg.Driver)

	var (
		dsn         string
		placeholder squirrel.PlaceholderFormat = squirrel.Dollar
	)
	switch driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		dsn = cfg.Path
		placeholder = squirrel.Question
	default:
		dsn = cfg.GetDatabaseURL()
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Repository{
		db:          db,
		placeholder: placeholder,
	}
	if err = r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Named("store").Info("Connected to database successfully", zap.String("driver", driver))

	return r, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}
