package api_keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/opendatahub-io/key-ledger/internal/logger"
)

type SQLStore struct {
	db            *sql.DB
	dbType        DBType
	logger        *logger.Logger
	maxLogEntries int
}

var _ Store = (*SQLStore)(nil)

// NewSQLiteStore creates a SQLite store with a file path.
// Use ":memory:" for an in-memory database (ephemeral, for testing).
func NewSQLiteStore(ctx context.Context, log *logger.Logger, dbPath string, maxLogEntries int) (*SQLStore, error) {
	if dbPath == "" {
		dbPath = sqliteMemory
	}

	dsn := dbPath
	if dbPath != sqliteMemory {
		dsn = dbPath + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	}

	s, err := openSQLStore(ctx, log, DBTypeSQLite, dsn, sqlitePool, maxLogEntries)
	if err != nil {
		return nil, err
	}

	if dbPath == sqliteMemory {
		log.Info("Connected to SQLite in-memory database (ephemeral - data will be lost on restart)")
	} else {
		log.Info("Connected to SQLite database", "path", dbPath)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	// Timestamps are TEXT: expiry strings are stored verbatim in whatever
	// format the client sent.
	createKeysQuery := `
	CREATE TABLE IF NOT EXISTS api_keys (
		api_key TEXT PRIMARY KEY,
		expired TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`
	if _, err := s.db.ExecContext(ctx, createKeysQuery); err != nil {
		return fmt.Errorf("failed to create api_keys table: %w", err)
	}

	//nolint:gosec // G201: Safe - column definition is a constant
	createLogQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS action_log (
		%s,
		id TEXT NOT NULL UNIQUE,
		action TEXT NOT NULL,
		api_key TEXT NOT NULL,
		time TEXT NOT NULL
	)`, s.dbType.sequenceColumn())
	if _, err := s.db.ExecContext(ctx, createLogQuery); err != nil {
		return fmt.Errorf("failed to create action_log table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_action_log_api_key ON action_log(api_key)`); err != nil {
		return fmt.Errorf("failed to create api_key index: %w", err)
	}

	return nil
}

func (s *SQLStore) placeholder(n int) string {
	return s.dbType.placeholder(n)
}

func (s *SQLStore) List(ctx context.Context) (map[string]KeyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT api_key, expired, created_at, deleted FROM api_keys`)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	keys := map[string]KeyRecord{}
	for rows.Next() {
		var apiKey string
		var rec KeyRecord
		if err := rows.Scan(&apiKey, &rec.Expired, &rec.CreatedAt, &rec.Deleted); err != nil {
			return nil, err
		}
		keys[apiKey] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *SQLStore) Get(ctx context.Context, apiKey string) (*KeyRecord, error) {
	//nolint:gosec // G201: Safe - using placeholder indices, not user input
	query := fmt.Sprintf(`SELECT expired, created_at, deleted FROM api_keys WHERE api_key = %s`, s.placeholder(1))

	var rec KeyRecord
	if err := s.db.QueryRowContext(ctx, query, apiKey).Scan(&rec.Expired, &rec.CreatedAt, &rec.Deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *SQLStore) Create(ctx context.Context, apiKey string, rec KeyRecord) error {
	//nolint:gosec // G201: Safe - using placeholder indices, not user input
	query := fmt.Sprintf(`
	INSERT INTO api_keys (api_key, expired, created_at, deleted)
	VALUES (%s, %s, %s, %s)
	ON CONFLICT (api_key) DO NOTHING
	`, s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))

	result, err := s.db.ExecContext(ctx, query, apiKey, rec.Expired, rec.CreatedAt, rec.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrKeyExists
	}
	return nil
}

func (s *SQLStore) MarkDeleted(ctx context.Context, apiKey string) error {
	//nolint:gosec // G201: Safe - using placeholder indices, not user input
	query := fmt.Sprintf(`UPDATE api_keys SET deleted = %s WHERE api_key = %s`, s.placeholder(1), s.placeholder(2))
	return s.execOne(ctx, query, true, apiKey)
}

func (s *SQLStore) Delete(ctx context.Context, apiKey string) error {
	//nolint:gosec // G201: Safe - using placeholder indices, not user input
	query := fmt.Sprintf(`DELETE FROM api_keys WHERE api_key = %s`, s.placeholder(1))
	return s.execOne(ctx, query, apiKey)
}

// execOne runs a statement expected to touch exactly one key row.
func (s *SQLStore) execOne(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *SQLStore) AppendLog(ctx context.Context, entry LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	//nolint:gosec // G201: Safe - using placeholder indices, not user input
	insert := fmt.Sprintf(`INSERT INTO action_log (id, action, api_key, time) VALUES (%s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), string(entry.Action), entry.APIKey, entry.Time); err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	if s.maxLogEntries > 0 {
		//nolint:gosec // G201: Safe - using placeholder indices, not user input
		trim := fmt.Sprintf(`DELETE FROM action_log WHERE seq NOT IN (SELECT seq FROM action_log ORDER BY seq DESC LIMIT %s)`,
			s.placeholder(1))
		result, err := tx.ExecContext(ctx, trim, s.maxLogEntries)
		if err != nil {
			return fmt.Errorf("failed to trim action log: %w", err)
		}
		if rows, err := result.RowsAffected(); err == nil && rows > 0 {
			s.logger.Debug("Trimmed action log", "removed", rows, "max_entries", s.maxLogEntries)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log entry: %w", err)
	}
	return nil
}

func (s *SQLStore) Logs(ctx context.Context) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action, api_key, time FROM action_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query action log: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		var action string
		if err := rows.Scan(&action, &e.APIKey, &e.Time); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
