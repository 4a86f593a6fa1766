package app

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ggonzalez94/solw/internal/config"
)

// isolateEnv points config, cache and key lookups at a temp dir so runs do
// not touch the developer's files.
func isolateEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))
	t.Setenv("SOLW_PRIVATE_KEY", "")
	t.Setenv("SOLW_PRIVATE_KEY_FILE", "")
	t.Chdir(tmp)
	return tmp
}

func TestTrimRootPath(t *testing.T) {
	if got := trimRootPath("solw swap quote"); got != "swap quote" {
		t.Fatalf("unexpected trim result: %s", got)
	}
	if got := trimRootPath("solw"); got != "solw" {
		t.Fatalf("expected root path unchanged, got %s", got)
	}
}

func TestSplitCSV(t *testing.T) {
	items := splitCSV("Wallet, swap quote ,")
	if len(items) != 2 || items[0] != "wallet" || items[1] != "swap quote" {
		t.Fatalf("unexpected split: %#v", items)
	}
}

func TestCacheKeyIsPrefixedByCommand(t *testing.T) {
	a := cacheKey("Swap  Quote", map[string]any{"amount": 1})
	b := cacheKey("swap quote", map[string]any{"amount": 2})
	if !strings.HasPrefix(a, cacheKeyPrefix("swap quote")) || !strings.HasPrefix(b, cacheKeyPrefix("swap quote")) {
		t.Fatalf("expected command prefix, got %s and %s", a, b)
	}
	if a == b {
		t.Fatal("expected different requests to produce different keys")
	}
	if a != cacheKey("swap quote", map[string]any{"amount": 1}) {
		t.Fatal("expected keys to be stable for the same request")
	}
}

func TestClusterName(t *testing.T) {
	cases := map[string]string{
		"":                                    "mainnet-beta",
		"mainnet":                             "mainnet-beta",
		"devnet":                              "devnet",
		"localnet":                            "localnet",
		"https://api.devnet.solana.com":       "devnet",
		"https://api.mainnet-beta.solana.com": "mainnet-beta",
		"http://10.0.0.5:8899":                "custom",
	}
	for in, want := range cases {
		if got := clusterName(in); got != want {
			t.Fatalf("clusterName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunnerProvidersList(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	r := NewRunnerWithWriters(&stdout, &stderr)
	code := r.Run([]string{"providers", "list", "--results-only"})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse output json: %v output=%s", err, stdout.String())
	}
	if len(out) != 1 || out[0]["name"] != "jupiter" {
		t.Fatalf("expected jupiter provider, got %+v", out)
	}
}

func TestRunnerTokensList(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	r := NewRunnerWithWriters(&stdout, &stderr)
	code := r.Run([]string{"tokens", "list", "--results-only"})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, stderr.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse output json: %v output=%s", err, stdout.String())
	}
	found := false
	for _, item := range out {
		if item["symbol"] == "USDC" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected USDC in token list, got %+v", out)
	}
}

func TestRunnerErrorEnvelopeIgnoresResultsOnly(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	r := NewRunnerWithWriters(&stdout, &stderr)
	code := r.Run([]string{"tokens", "list", "--enable-commands", "balance", "--results-only"})
	if code != 16 {
		t.Fatalf("expected exit 16, got %d stderr=%s", code, stderr.String())
	}
	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code   int    `json:"code"`
			Type   string `json:"type"`
			Family string `json:"family"`
		} `json:"error"`
	}
	if err := json.Unmarshal(stderr.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse error envelope: %v output=%s", err, stderr.String())
	}
	if env.Success {
		t.Fatal("expected success=false")
	}
	if env.Error.Type != "command_blocked" {
		t.Fatalf("unexpected error type %+v", env.Error)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %s", stdout.String())
	}
}

func TestRunnerUnknownFlagIsUsageError(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	r := NewRunnerWithWriters(&stdout, &stderr)
	if code := r.Run([]string{"wrap", "--bogus"}); code != 2 {
		t.Fatalf("expected usage exit code 2, got %d stderr=%s", code, stderr.String())
	}
}

func TestRunnerWrapRequiresAmount(t *testing.T) {
	isolateEnv(t)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	r := NewRunnerWithWriters(&stdout, &stderr)
	if code := r.Run([]string{"wrap", "--amount", "1", "--lamports", "5"}); code != 2 {
		t.Fatalf("expected usage exit code 2 for conflicting amounts, got %d stderr=%s", code, stderr.String())
	}
}

func TestRunnerReadOnlyBlocksWrap(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SOLW_READ_ONLY", "true")
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	r := NewRunnerWithWriters(&stdout, &stderr)
	if code := r.Run([]string{"wrap", "--amount", "1"}); code != 16 {
		t.Fatalf("expected blocked exit 16, got %d stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "read-only") {
		t.Fatalf("expected read-only reason, got %s", stderr.String())
	}
}

func TestSubmitContextLeavesConfirmWindowToChain(t *testing.T) {
	s := &runtimeState{settings: config.Settings{Timeout: time.Millisecond, ConfirmTimeout: time.Millisecond}}
	ctx, cancel := s.submitContext()
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		t.Fatalf("expected no flow deadline, got %v", deadline)
	}
	cancel()
	if ctx.Err() == nil {
		t.Fatal("expected cancel to end the flow context")
	}
}
