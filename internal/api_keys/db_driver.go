package api_keys

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"k8s.io/utils/env"

	"github.com/opendatahub-io/key-ledger/internal/logger"
)

// DBType names a SQL dialect supported by SQLStore.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"

	sqliteMemory = ":memory:"
)

func (t DBType) driver() string {
	if t == DBTypePostgres {
		return "pgx"
	}
	return "sqlite3"
}

// placeholder returns the bind parameter for the n-th argument: ? for SQLite,
// $n for PostgreSQL.
func (t DBType) placeholder(n int) string {
	if t == DBTypeSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// sequenceColumn is the auto-incrementing key that orders the action log.
func (t DBType) sequenceColumn() string {
	if t == DBTypePostgres {
		return "seq BIGSERIAL PRIMARY KEY"
	}
	return "seq INTEGER PRIMARY KEY AUTOINCREMENT"
}

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// SQLite allows a single writer, so one connection avoids SQLITE_BUSY.
var sqlitePool = poolSettings{maxOpen: 1, maxIdle: 1}

// postgresPoolFromEnv reads DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS and
// DB_CONN_MAX_LIFETIME_SECONDS. Unparseable values fall back to the defaults.
func postgresPoolFromEnv() poolSettings {
	maxOpen, _ := env.GetInt("DB_MAX_OPEN_CONNS", 25)
	maxIdle, _ := env.GetInt("DB_MAX_IDLE_CONNS", 5)
	lifetimeSecs, _ := env.GetInt("DB_CONN_MAX_LIFETIME_SECONDS", 300)

	return poolSettings{
		maxOpen:     maxOpen,
		maxIdle:     maxIdle,
		maxLifetime: time.Duration(lifetimeSecs) * time.Second,
	}
}

func (p poolSettings) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.maxLifetime)
}

// NewExternalStore connects to PostgreSQL. Only postgres:// and postgresql://
// URLs are accepted.
func NewExternalStore(ctx context.Context, log *logger.Logger, databaseURL string, maxLogEntries int) (*SQLStore, error) {
	databaseURL = strings.TrimSpace(databaseURL)

	u, err := url.Parse(databaseURL)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		scheme := ""
		if u != nil {
			scheme = u.Scheme
		}
		return nil, fmt.Errorf("unsupported database URL scheme %q: expected postgres:// or postgresql://", scheme)
	}

	s, err := openSQLStore(ctx, log, DBTypePostgres, databaseURL, postgresPoolFromEnv(), maxLogEntries)
	if err != nil {
		return nil, err
	}

	log.Info("Connected to PostgreSQL", "host", u.Host, "database", strings.TrimPrefix(u.Path, "/"))
	return s, nil
}

// openSQLStore opens the database, verifies the connection and creates the
// schema. The handle is closed again on any failure.
func openSQLStore(ctx context.Context, log *logger.Logger, dbType DBType, dsn string, pool poolSettings, maxLogEntries int) (*SQLStore, error) {
	db, err := sql.Open(dbType.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}
	pool.apply(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dbType, err)
	}

	s := &SQLStore{db: db, dbType: dbType, logger: log, maxLogEntries: maxLogEntries}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize %s schema: %w", dbType, err)
	}
	return s, nil
}
