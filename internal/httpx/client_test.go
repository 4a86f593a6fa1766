package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/ggonzalez94/solw/internal/errors"
)

func TestDoJSONRetriesServerError(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"x"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	var out map[string]any
	if _, err := client.DoJSON(context.Background(), req, &out); err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected response: %#v", out)
	}
}

func TestDoJSONBadRequestCarriesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 2)
	_, err := DoBodyJSON(context.Background(), client, http.MethodPost, srv.URL, []byte(`{}`), nil, &map[string]any{})
	if err == nil {
		t.Fatal("expected bad request error")
	}
	if code := clierr.ExitCode(err); code != int(clierr.CodeUsage) {
		t.Fatalf("expected usage code, got %d", code)
	}
	if !strings.Contains(err.Error(), "COULD_NOT_FIND_ANY_ROUTE") {
		t.Fatalf("expected provider detail in error, got %v", err)
	}
}

func TestDoJSONCancelledContextIsInterrupted(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err = New(5*time.Second, 0).DoJSON(ctx, req, &map[string]any{})
	if code := clierr.ExitCode(err); code != int(clierr.CodeInterrupted) {
		t.Fatalf("expected interrupted code, got %d (%v)", code, err)
	}
}

func TestDoJSONHonoursRetryAfter(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&count, 1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	var waits []time.Duration
	client.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	var out map[string]any
	if _, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &out); err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if len(waits) != 1 || waits[0] != 3*time.Second {
		t.Fatalf("expected a single 3s wait, got %v", waits)
	}
}

func TestDoJSONRateLimitExhaustsRetries(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(2*time.Second, 2)
	client.wait = func(context.Context, time.Duration) error { return nil }
	_, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &map[string]any{})
	if code := clierr.ExitCode(err); code != int(clierr.CodeRateLimited) {
		t.Fatalf("expected rate limited code, got %d (%v)", code, err)
	}
	if got := atomic.LoadInt32(&count); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoJSONAuthFailureIsNotRetried(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(2*time.Second, 3)
	client.wait = func(context.Context, time.Duration) error { return nil }
	_, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &map[string]any{})
	if code := clierr.ExitCode(err); code != int(clierr.CodeAuth) {
		t.Fatalf("expected auth code, got %d (%v)", code, err)
	}
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"600", maxRetryAfter},
		{"-1", 0},
		{"soon", 0},
		{now.Add(4 * time.Second).Format(http.TimeFormat), 4 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.in, now); got != tc.want {
			t.Fatalf("parseRetryAfter(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
