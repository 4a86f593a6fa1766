package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }
func openAt(t *testing.T, c *clock) *Store {
	t.Helper()
	tmp := t.TempDir()
	store, err := Open(filepath.Join(tmp, "cache.db"), filepath.Join(tmp, "cache.lock"))
	if err != nil {
		t.Fatalf("Open cache failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	store.SetClock(c.now)
	return store
}

func TestCacheFreshStaleAndTooStale(t *testing.T) {
	c := newClock()
	store := openAt(t, c)
	if err := store.Set("swap quote:a", []byte(`{"out":"1"}`), 15*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	cases := []struct {
		advance  time.Duration
		maxStale time.Duration
		stale    bool
		tooStale bool
	}{
		{advance: 0, maxStale: time.Minute},
		{advance: 14 * time.Second, maxStale: time.Minute},
		{advance: 2 * time.Second, maxStale: time.Minute, stale: true},
		{advance: 0, maxStale: 500 * time.Millisecond, stale: true, tooStale: true},
		{advance: time.Hour, maxStale: -1, stale: true},
	}
	for i, tc := range cases {
		c.advance(tc.advance)
		res, err := store.Get("swap quote:a", tc.maxStale)
		if err != nil {
			t.Fatalf("case %d: Get failed: %v", i, err)
		}
		if !res.Hit || res.Stale != tc.stale || res.TooStale != tc.tooStale {
			t.Fatalf("case %d: unexpected result %+v", i, res)
		}
	}
}

func TestCacheMissAndOverwrite(t *testing.T) {
	c := newClock()
	store := openAt(t, c)
	if res, err := store.Get("missing", time.Minute); err != nil || res.Hit {
		t.Fatalf("expected clean miss, got %+v err=%v", res, err)
	}
	_ = store.Set("k", []byte("1"), time.Second)
	c.advance(10 * time.Second)
	_ = store.Set("k", []byte("2"), time.Second)
	res, err := store.Get("k", 0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(res.Value) != "2" || res.Stale || res.Age != 0 {
		t.Fatalf("expected overwrite to reset age, got %+v", res)
	}
}

func TestCachePrune(t *testing.T) {
	c := newClock()
	store := openAt(t, c)
	_ = store.Set("short", []byte("1"), time.Second)
	_ = store.Set("long", []byte("1"), time.Hour)
	c.advance(time.Minute)

	n, err := store.Prune(0)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one expired entry pruned, got %d", n)
	}
	if res, _ := store.Get("long", 0); !res.Hit {
		t.Fatal("expected live entry to survive prune")
	}
}

func TestCacheConcurrentOpenAndSet(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "cache.db")
	lockPath := filepath.Join(tmp, "cache.lock")

	const workers = 8
	const iterations = 25

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := Open(dbPath, lockPath)
			if err != nil {
				errCh <- fmt.Errorf("worker %d open: %w", w, err)
				return
			}
			defer store.Close()
			for i := range iterations {
				key := fmt.Sprintf("swap quote:%d-%d", w, i)
				if err := store.Set(key, []byte(`{"ok":true}`), time.Minute); err != nil {
					errCh <- fmt.Errorf("worker %d set %d: %w", w, i, err)
					return
				}
				if res, err := store.Get(key, time.Minute); err != nil || !res.Hit {
					errCh <- fmt.Errorf("worker %d get %d: hit=%v err=%v", w, i, res.Hit, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	store := openAt(t, newClock())
	for _, key := range []string{"swap quote:a", "swap quote:b", "swap quotes:x", "balance:x"} {
		if err := store.Set(key, []byte(`{}`), time.Minute); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}
	n, err := store.DeletePrefix("swap quote:")
	if err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected two entries removed, got %d", n)
	}
	for key, want := range map[string]bool{"swap quote:a": false, "swap quotes:x": true, "balance:x": true} {
		if res, _ := store.Get(key, time.Minute); res.Hit != want {
			t.Fatalf("%s: expected hit=%v", key, want)
		}
	}
}

func TestOpenAppliesPragmasToEveryConnection(t *testing.T) {
	store := openAt(t, newClock())
	ctx := context.Background()

	// Hold two connections at once so the pool cannot hand back the same one.
	for i := 0; i < 2; i++ {
		conn, err := store.db.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		var timeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("read busy_timeout: %v", err)
		}
		if timeout != 5000 {
			t.Fatalf("conn %d: expected busy_timeout 5000, got %d", i, timeout)
		}
		var mode string
		if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("read journal_mode: %v", err)
		}
		if mode != "wal" {
			t.Fatalf("conn %d: expected wal journal, got %q", i, mode)
		}
	}
}
