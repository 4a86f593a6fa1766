package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const lockWait = 5 * time.Second

// Store persists actions in SQLite. Filterable fields get their own columns;
// the full record lives in payload as JSON.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

var storeSchema = []string{
	`CREATE TABLE IF NOT EXISTS actions (
		action_id TEXT PRIMARY KEY,
		intent_type TEXT NOT NULL,
		status TEXT NOT NULL,
		chain_id TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		signature TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_actions_status_updated ON actions(status, updated_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_actions_owner_updated ON actions(owner, updated_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_actions_signature ON actions(signature) WHERE signature <> '';",
}

func OpenStore(path, lockPath string) (*Store, error) {
	for _, dir := range []string{filepath.Dir(path), filepath.Dir(lockPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create action store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open action sqlite: %w", err)
	}
	store := &Store{db: db, lock: flock.New(lockPath)}
	err = store.withLock(func() error {
		for _, stmt := range storeSchema {
			if _, err := db.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init action schema: %w", err)
	}
	return store, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return path + "?" + q.Encode()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces the action. created_at is kept from the first
// save.
func (s *Store) Save(action Action) error {
	if strings.TrimSpace(action.ActionID) == "" {
		return fmt.Errorf("save action: missing action id")
	}
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	now := time.Now().UTC().Unix()
	created := unixOr(action.CreatedAt, now)
	updated := unixOr(action.UpdatedAt, now)

	return s.withLock(func() error {
		_, err := s.db.Exec(`
			INSERT INTO actions (action_id, intent_type, status, chain_id, owner, signature, created_at, updated_at, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(action_id) DO UPDATE SET
				intent_type=excluded.intent_type,
				status=excluded.status,
				chain_id=excluded.chain_id,
				owner=excluded.owner,
				signature=excluded.signature,
				updated_at=excluded.updated_at,
				payload=excluded.payload
		`, action.ActionID, string(action.IntentType), string(action.Status), action.ChainID, action.Owner, action.Signature, created, updated, payload)
		if err != nil {
			return fmt.Errorf("save action: %w", err)
		}
		return nil
	})
}

func (s *Store) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockWait)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock action store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock action store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *Store) Get(actionID string) (Action, error) {
	return s.getWhere("action_id", actionID)
}

// GetBySignature finds the action that submitted signature.
func (s *Store) GetBySignature(signature string) (Action, error) {
	if strings.TrimSpace(signature) == "" {
		return Action{}, clierr.New(clierr.CodeUsage, "signature is required")
	}
	return s.getWhere("signature", signature)
}

func (s *Store) getWhere(column, value string) (Action, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM actions WHERE "+column+" = ? ORDER BY updated_at DESC LIMIT 1", value).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Action{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("action not found for %s %s", strings.ReplaceAll(column, "_", " "), value))
	}
	if err != nil {
		return Action{}, fmt.Errorf("read action: %w", err)
	}
	var action Action
	if err := json.Unmarshal(payload, &action); err != nil {
		return Action{}, fmt.Errorf("decode action payload: %w", err)
	}
	return action, nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status string
	Intent string
	Owner  string
	Limit  int
}

func (s *Store) List(filter ListFilter) ([]Action, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	var (
		where []string
		args  []any
	)
	if v := strings.TrimSpace(filter.Status); v != "" {
		where = append(where, "status = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(filter.Intent); v != "" {
		where = append(where, "intent_type = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(filter.Owner); v != "" {
		where = append(where, "owner = ?")
		args = append(args, v)
	}
	query := "SELECT payload FROM actions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	actions := make([]Action, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}
		var action Action
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, fmt.Errorf("decode action row: %w", err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action rows: %w", err)
	}
	return actions, nil
}

func unixOr(rfc3339 string, fallback int64) int64 {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return fallback
	}
	return t.UTC().Unix()
}
