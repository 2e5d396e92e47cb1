// Package store provides conversation record storage backends for IntakeFlow.
//
// This file implements the PostgreSQL-backed conversation store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/IntakeFlow/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore stores conversation records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
// Migrations run at open; an unreachable database fails startup.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// AddConversationTurns appends the batch inside a transaction so a partial
// batch never reaches the record.
func (s *PostgresStore) AddConversationTurns(userID string, turns []models.Turn) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("PostgresStore AddConversationTurns begin failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, t := range turns {
		if t.Time == 0 {
			t.Time = time.Now().Unix()
		}
		if _, err := tx.Exec(
			`INSERT INTO conversation_turns (user_id, sender, text, time) VALUES ($1, $2, $3, $4)`,
			userID, string(t.Sender), t.Text, t.Time,
		); err != nil {
			tx.Rollback()
			slog.Error("PostgresStore AddConversationTurns insert failed", "error", err, "userID", userID)
			return fmt.Errorf("failed to insert turn for %s: %w", userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore AddConversationTurns commit failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to commit turns for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore AddConversationTurns succeeded", "userID", userID, "count", len(turns))
	return nil
}

// GetConversation returns the user's record ordered by insertion.
func (s *PostgresStore) GetConversation(userID string) ([]models.Turn, error) {
	rows, err := s.db.Query(
		`SELECT sender, text, time FROM conversation_turns WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		slog.Error("PostgresStore GetConversation query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query conversation for %s: %w", userID, err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.Sender, &t.Text, &t.Time); err != nil {
			slog.Error("PostgresStore GetConversation scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetConversation rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	slog.Debug("PostgresStore GetConversation succeeded", "userID", userID, "count", len(turns))
	return turns, nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
