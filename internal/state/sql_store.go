package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cable-orchestrator/internal/models"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DataSourceConfig holds Postgres connection details.
type DataSourceConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require"
}

// DSN renders the config as a lib/pq connection string.
func (c DataSourceConfig) DSN() string {
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// SQLStore keeps mappings in a "field_mappings" table of a SQLite or
// Postgres database.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLStore opens the database and creates the table if needed. driver is
// "sqlite" or "postgres".
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != "sqlite" && driver != "postgres" {
		return nil, fmt.Errorf("unsupported mapping store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS field_mappings (
			key        TEXT PRIMARY KEY,
			mapping    TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create field_mappings: %w", err)
	}
	return nil
}

// bind rewrites ? placeholders for drivers that number them.
func (s *SQLStore) bind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

func (s *SQLStore) LoadMapping(ctx context.Context, key string) (models.FieldMapping, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT mapping FROM field_mappings WHERE key = ?`), key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load mapping %s: %w", key, err)
	}
	var m models.FieldMapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode mapping %s: %w", key, err)
	}
	return m, nil
}

func (s *SQLStore) SaveMapping(ctx context.Context, key string, m models.FieldMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.bind(`
		INSERT INTO field_mappings (key, mapping, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET mapping = excluded.mapping, updated_at = excluded.updated_at`),
		key, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save mapping %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
