// Package sqlite stores audit records and the user read model in an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/medme/secwatch/internal/adapter/outbound/persistence/sqlite/migration"
)

const memoryPath = ":memory:"

var journalModes = map[string]bool{
	"wal": true, "delete": true, "truncate": true,
	"persist": true, "memory": true, "off": true,
}

type Config struct {
	Path              string
	MaxOpenConns      int
	PragmaJournalMode string
	PragmaBusyTimeout int
}

// Store owns the connection pool shared by AuditRepo and UserRepo.
type Store struct {
	DB *sql.DB
}

// NewStore opens the database, creating its directory if needed, and applies the
// embedded migrations. An in-memory database is pinned to one connection so every
// repository sees the same schema.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	mode := strings.ToLower(cfg.PragmaJournalMode)
	if mode == "" {
		mode = "wal"
	}
	if !journalModes[mode] {
		return nil, fmt.Errorf("invalid pragma journal mode: %q", cfg.PragmaJournalMode)
	}
	busy := cfg.PragmaBusyTimeout
	if busy <= 0 {
		busy = 5000
	}

	conns := max(cfg.MaxOpenConns, 1)
	if cfg.Path == memoryPath {
		conns = 1
	} else if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d&_foreign_keys=on", cfg.Path, mode, busy)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(conns)

	if err := migration.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{DB: db}, nil
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }
