package cache

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a durable byte-oriented cache that survives process restarts.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Close() error
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS results (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLiteStore persists cache entries in a single SQLite file. Writes are
// buffered and flushed in batches by a background goroutine so Put never
// blocks on disk.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	pending map[string][]byte

	flush  chan struct{}
	done   chan struct{}
	closed bool
}

// OpenSQLiteStore opens or creates the store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	s := &SQLiteStore{
		db:      db,
		pending: make(map[string][]byte),
		flush:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.flushLoop()
	return s, nil
}

func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	if v, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return v, true, nil
	}
	s.mu.Unlock()

	var value []byte
	err := s.db.QueryRow(`SELECT value FROM results WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(key string, value []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("cache store closed")
	}
	s.pending[key] = value
	// Signal under the lock so Close cannot close the channel between
	// the closed check and the send.
	select {
	case s.flush <- struct{}{}:
	default:
	}
	s.mu.Unlock()
	return nil
}

// Close flushes pending writes and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.flush)
	<-s.done
	return s.db.Close()
}

func (s *SQLiteStore) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case _, ok := <-s.flush:
			s.flushPending()
			if !ok {
				return
			}
		case <-ticker.C:
			s.flushPending()
		}
	}
}

func (s *SQLiteStore) flushPending() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[string][]byte)
	s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO results (key, value, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return
	}
	now := time.Now().Unix()
	for k, v := range batch {
		stmt.Exec(k, v, now)
	}
	stmt.Close()
	tx.Commit()
}
