package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// currentVersion is the schema version kept in PRAGMA user_version. Any other
// non-zero version found on disk is dropped and recreated.
const currentVersion = 2

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, log: log, subs: make(map[*Subscription]struct{})}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:", nil)
}

// Close ends every live subscription and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version == currentVersion {
		return nil
	}

	if version != 0 {
		s.log.Warnw("incompatible schema, recreating tasks table", "found", version, "want", currentVersion)
		if err := s.dropTasks(); err != nil {
			return err
		}
	}

	if err := s.createSchema(); err != nil {
		return err
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

// dropTasks discards the tasks table only. Preferences live outside the
// versioned schema and survive a recreate.
func (s *Store) dropTasks() error {
	if _, err := s.db.Exec(`DROP TABLE IF EXISTS tasks`); err != nil {
		return fmt.Errorf("drop tasks table: %w", err)
	}
	return nil
}

func (s *Store) createSchema() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS tasks (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'new',
		creationDate INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS preferences (
		namespace TEXT NOT NULL,
		key       TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DefaultDBPath returns ~/.config/tasklist/tasklist.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "tasklist", "tasklist.db"), nil
}
