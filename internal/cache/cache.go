// Package cache stores provider responses in a local SQLite file shared by
// concurrent CLI processes.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const lockWait = 5 * time.Second

type Store struct {
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

// Result is a cache lookup. Stale entries are still returned so callers
// can fall back to them when a fresh fetch fails.
type Result struct {
	Hit      bool
	Value    []byte
	Age      time.Duration
	Stale    bool
	TooStale bool
}

func Open(path, lockPath string) (*Store, error) {
	for _, dir := range []string{filepath.Dir(path), filepath.Dir(lockPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	store := &Store{db: db, lock: flock.New(lockPath), now: time.Now}
	err = store.withLock(func() error {
		_, err := db.Exec(`CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			stored_at_ms INTEGER NOT NULL,
			ttl_ms INTEGER NOT NULL
		);`)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return store, nil
}

// dsn sets the pragmas on every pooled connection. busy_timeout has to be
// in place before journal_mode runs.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return path + "?" + q.Encode()
}

// SetClock replaces the wall clock used for ages and expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Prune deletes entries older than their TTL plus grace and returns how
// many went.
func (s *Store) Prune(grace time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res, err := s.db.Exec("DELETE FROM responses WHERE stored_at_ms + ttl_ms + ? < ?", grace.Milliseconds(), s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Get looks key up. maxStale bounds TooStale; a negative value never marks
// an entry too stale.
func (s *Store) Get(key string, maxStale time.Duration) (Result, error) {
	var payload []byte
	var storedMS, ttlMS int64
	err := s.db.QueryRow("SELECT payload, stored_at_ms, ttl_ms FROM responses WHERE key = ?", key).Scan(&payload, &storedMS, &ttlMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("cache read: %w", err)
	}

	age := max(time.Duration(s.now().UnixMilli()-storedMS)*time.Millisecond, 0)
	ttl := time.Duration(ttlMS) * time.Millisecond
	stale := age > ttl
	return Result{
		Hit:      true,
		Value:    payload,
		Age:      age,
		Stale:    stale,
		TooStale: stale && maxStale >= 0 && age > ttl+maxStale,
	}, nil
}

func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	ttlMS := max(ttl.Milliseconds(), 1)
	storedMS := s.now().UnixMilli()
	return s.withLock(func() error {
		_, err := s.db.Exec(`
			INSERT INTO responses (key, payload, stored_at_ms, ttl_ms)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				payload=excluded.payload,
				stored_at_ms=excluded.stored_at_ms,
				ttl_ms=excluded.ttl_ms
		`, key, value, storedMS, ttlMS)
		if err != nil {
			return fmt.Errorf("cache write: %w", err)
		}
		return nil
	})
}

// DeletePrefix drops every entry whose key starts with prefix and reports
// how many were removed.
func (s *Store) DeletePrefix(prefix string) (int64, error) {
	var n int64
	err := s.withLock(func() error {
		res, err := s.db.Exec("DELETE FROM responses WHERE substr(key, 1, ?) = ?", len(prefix), prefix)
		if err != nil {
			return fmt.Errorf("cache delete: %w", err)
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}

func (s *Store) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockWait)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}
