package session

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps sessions in a SQLite database shared by all replicas
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore opens (and creates when needed) the session database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:   db,
		path: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.optimizeForMultiProcess(); err != nil {
		log.Printf("Warning: Failed to apply optimizations: %v", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS checkout_sessions (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_checkout_sessions_updated ON checkout_sessions(updated_at);
	`

	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) optimizeForMultiProcess() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA temp_store = memory;",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			log.Printf("Warning: Failed to execute %s: %v", pragma, err)
		}
	}

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to check journal mode: %w", err)
	}
	return nil
}

// retryOperation retries op on SQLITE_BUSY with exponential backoff (10ms, 20ms, 40ms...)
func (s *SQLiteStore) retryOperation(op func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries {
			time.Sleep(time.Duration(10*(1<<attempt)) * time.Millisecond)
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *SQLiteStore) Get(sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		value string
		found bool
	)
	err := s.retryOperation(func() error {
		err := s.db.QueryRow(
			`SELECT value FROM checkout_sessions WHERE session_id = ? AND key = ?`,
			sessionID, key,
		).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load session value: %w", err)
		}
		found = true
		return nil
	}, 3)

	return value, found, err
}

const upsertValue = `
INSERT INTO checkout_sessions (session_id, key, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(session_id, key)
DO UPDATE SET
	value = excluded.value,
	updated_at = excluded.updated_at
`

func (s *SQLiteStore) Set(sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		if _, err := s.db.Exec(upsertValue, sessionID, key, value, time.Now().UnixNano()); err != nil {
			return fmt.Errorf("failed to save session value: %w", err)
		}
		return nil
	}, 3)
}

// Replace applies values and removals in a single transaction. A key present
// in both is written.
func (s *SQLiteStore) Replace(sessionID string, values map[string]string, remove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin session transaction: %w", err)
		}
		defer tx.Rollback()

		for _, key := range remove {
			if _, err := tx.Exec(`DELETE FROM checkout_sessions WHERE session_id = ? AND key = ?`, sessionID, key); err != nil {
				return fmt.Errorf("failed to delete session value: %w", err)
			}
		}

		now := time.Now().UnixNano()
		for key, value := range values {
			if _, err := tx.Exec(upsertValue, sessionID, key, value, now); err != nil {
				return fmt.Errorf("failed to save session value: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit session values: %w", err)
		}
		return nil
	}, 3)
}

func (s *SQLiteStore) Delete(sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, sessionID)
	for _, key := range keys {
		args = append(args, key)
	}

	return s.retryOperation(func() error {
		query := `DELETE FROM checkout_sessions WHERE session_id = ? AND key IN (` + placeholders + `)`
		if _, err := s.db.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to delete session values: %w", err)
		}
		return nil
	}, 3)
}

func (s *SQLiteStore) PurgeIdle(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).UnixNano()

	var purged int64
	err := s.retryOperation(func() error {
		query := `
		DELETE FROM checkout_sessions
		WHERE session_id IN (
			SELECT session_id FROM checkout_sessions
			GROUP BY session_id
			HAVING MAX(updated_at) < ?
		)
		`

		var count int64
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM (SELECT session_id FROM checkout_sessions GROUP BY session_id HAVING MAX(updated_at) < ?)`,
			cutoff,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to count idle sessions: %w", err)
		}

		if _, err := s.db.Exec(query, cutoff); err != nil {
			return fmt.Errorf("failed to purge idle sessions: %w", err)
		}
		purged = count
		return nil
	}, 3)

	return purged, err
}

// Stats returns database statistics for health reporting
func (s *SQLiteStore) Stats() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]any)

	var sessions, values int
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT session_id), COUNT(*) FROM checkout_sessions`).Scan(&sessions, &values); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	stats["sessions"] = sessions
	stats["values"] = values

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats["db_size_bytes"] = fileInfo.Size()
	}
	stats["db_path"] = s.path

	return stats, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
