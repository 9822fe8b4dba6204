package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists preferences for every visitor in one table. Use Scope
// to get the Store for a single visitor.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger

	// serializes Update calls from this process
	updateMu sync.Mutex
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference db: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS preferences (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (scope, key)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply preference schema: %w", err)
	}

	logger.Debug("preference store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scope returns the Store holding one visitor's preferences.
func (s *SQLiteStore) Scope(scope string) Store {
	return &scopedStore{db: s.db, scope: scope, mu: &s.updateMu}
}

type scopedStore struct {
	db    *sql.DB
	scope string
	mu    *sync.Mutex
}

func (s *scopedStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE scope = ? AND key = ?`, s.scope, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *scopedStore) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO preferences(scope, key, value, updated_at) VALUES(?,?,?,?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.scope, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *scopedStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM preferences WHERE scope = ? AND key = ?`, s.scope, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (s *scopedStore) Update(key string, fn func(string, bool) (string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	v, err := fn(old, ok)
	if err != nil {
		return err
	}
	if ok && v == old {
		return nil
	}
	return s.Set(key, v)
}
