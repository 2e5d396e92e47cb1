// Package store provides conversation record storage backends for IntakeFlow.
//
// This file implements the SQLite-backed conversation store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore stores conversation records in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is a
// file path to the database file; its directory is created if missing.
// Migrations run at open, so an unreachable or unwritable database fails
// startup instead of surfacing later.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// AddConversationTurns appends the batch inside a transaction so a partial
// batch never reaches the record.
func (s *SQLiteStore) AddConversationTurns(userID string, turns []models.Turn) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("SQLiteStore AddConversationTurns begin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, t := range turns {
		if t.Time == 0 {
			t.Time = time.Now().Unix()
		}
		if _, err := tx.Exec(
			`INSERT INTO conversation_turns (user_id, sender, text, time) VALUES (?, ?, ?, ?)`,
			userID, string(t.Sender), t.Text, t.Time,
		); err != nil {
			tx.Rollback()
			slog.Error("SQLiteStore AddConversationTurns insert failed", "error", err, "userID", userID)
			return fmt.Errorf("failed to insert turn for %s: %w", userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore AddConversationTurns commit failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to commit turns for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore AddConversationTurns succeeded", "userID", userID, "count", len(turns))
	return nil
}

// GetConversation returns the user's record ordered by insertion.
func (s *SQLiteStore) GetConversation(userID string) ([]models.Turn, error) {
	rows, err := s.db.Query(
		`SELECT sender, text, time FROM conversation_turns WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		slog.Error("SQLiteStore GetConversation query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query conversation for %s: %w", userID, err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.Sender, &t.Text, &t.Time); err != nil {
			slog.Error("SQLiteStore GetConversation scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetConversation rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	slog.Debug("SQLiteStore GetConversation succeeded", "userID", userID, "count", len(turns))
	return turns, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
