package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite persists entries across process restarts, for single-node
// deployments that want durable fingerprints without redis.
type SQLite struct {
	conn *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &SQLite{conn: conn}, nil
}

func runMigrations(conn *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(migrations)
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.conn.QueryRowContext(ctx,
		`SELECT value, expires_at FROM entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	if expiresAt > 0 && time.Now().Unix() > expiresAt {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) ClearExpired(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM entries WHERE expires_at > 0 AND expires_at < ?`, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite clear expired: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}
