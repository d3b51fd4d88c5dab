// Package cache holds compiled templates: Store persists bytecode programs
// in sqlite across processes, and LRU bounds parsed templates in memory.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/funvibe/liquid/internal/bytecode"
)

var log = commonlog.GetLogger("liquid.cache")

// ErrMiss is returned when no program is stored for a name and source.
var ErrMiss = errors.New("program not cached")

// Store persists compiled programs keyed by template name and source hash.
// Storing a new source for a name replaces the old entry.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens or creates the store at dbPath. ":memory:" gives a private
// in-memory store.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hash TEXT NOT NULL,
		version INTEGER NOT NULL,
		program BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(name, hash)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Hash identifies a template source.
func Hash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the program compiled from source, or ErrMiss. Entries written
// by another bytecode format version are misses.
func (s *Store) Get(name, source string) (*bytecode.Program, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT program FROM programs WHERE name = ? AND hash = ? AND version = ?",
		name, Hash(source), bytecode.FormatVersion,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrMiss, name)
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	p, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding cached %s: %w", name, err)
	}
	log.Debugf("hit %q", name)
	return p, nil
}

// Put stores p as the compiled form of source and drops older sources
// stored under the same name. It returns the entry's id.
func (s *Store) Put(name, source string, p *bytecode.Program) (string, error) {
	data, err := bytecode.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	hash := Hash(source)
	if _, err := tx.Exec("DELETE FROM programs WHERE name = ? AND hash != ?", name, hash); err != nil {
		return "", fmt.Errorf("pruning %s: %w", name, err)
	}

	id := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO programs (id, name, hash, version, program, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, hash) DO UPDATE SET
			version = excluded.version,
			program = excluded.program,
			created_at = excluded.created_at`,
		id, name, hash, bytecode.FormatVersion, data, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	if err := tx.QueryRow("SELECT id FROM programs WHERE name = ? AND hash = ?", name, hash).Scan(&id); err != nil {
		return "", fmt.Errorf("reading id of %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	log.Debugf("stored %q as %s (%d bytes)", name, id, len(data))
	return id, nil
}

// Delete removes every entry for name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM programs WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// Len is the number of stored programs.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}
