// Package store provides conversation record storage backends for IntakeFlow.
//
// It includes an in-memory store for tests and local development plus
// SQLite- and PostgreSQL-backed stores for durable records.
package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// ConversationStore is the durable recorder for per-user conversation
// history. Records are append-only: the first write for a user creates the
// record, later writes extend it preserving both record and batch order, and
// nothing is ever deduplicated or deleted.
type ConversationStore interface {
	// AddConversationTurns appends a batch of turns to the user's record,
	// creating the record on first write. Turns with a zero Time are
	// stamped at append time.
	AddConversationTurns(userID string, turns []models.Turn) error

	// GetConversation returns the user's full record in append order.
	GetConversation(userID string) ([]models.Turn, error)

	// Close releases underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, connection string for
// Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// NewConversationStore selects a backend from the driver name. An empty
// driver picks Postgres when the DSN looks like a connection URL and SQLite
// otherwise.
func NewConversationStore(driver string, opts ...Option) (ConversationStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	if driver == "" {
		if strings.HasPrefix(cfg.DSN, "postgres://") || strings.Contains(cfg.DSN, "host=") {
			driver = "postgres"
		} else {
			driver = "sqlite3"
		}
	}

	switch driver {
	case "postgres":
		return NewPostgresStore(opts...)
	case "sqlite3", "sqlite":
		return NewSQLiteStore(opts...)
	case "memory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// InMemoryStore keeps conversation records in process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]models.Turn
}

// NewInMemoryStore creates an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string][]models.Turn)}
}

// AddConversationTurns appends the batch to the user's record.
func (s *InMemoryStore) AddConversationTurns(userID string, turns []models.Turn) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range turns {
		if t.Time == 0 {
			t.Time = time.Now().Unix()
		}
		s.conversations[userID] = append(s.conversations[userID], t)
	}
	return nil
}

// GetConversation returns a copy of the user's record in append order.
func (s *InMemoryStore) GetConversation(userID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.conversations[userID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
