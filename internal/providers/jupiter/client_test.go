package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/httpx"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/swap"
)

var (
	solMint  = solana.MustPublicKeyFromBase58(id.WrappedSOLMint)
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func TestGetQuoteSendsParamsAndKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("expected x-api-key header, got %q", got)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != solMint.String() || q.Get("outputMint") != usdcMint.String() {
			t.Errorf("unexpected mints: %v", q)
		}
		if q.Get("amount") != "2000000" || q.Get("slippageBps") != "75" || q.Get("swapMode") != "ExactIn" {
			t.Errorf("unexpected params: %v", q)
		}
		_, _ = w.Write([]byte(`{
			"inputMint":"So11111111111111111111111111111111111111112",
			"outputMint":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			"inAmount":"2000000",
			"outAmount":"1995000",
			"slippageBps":75,
			"priceImpactPct":"0.13",
			"routePlan":[
				{"percent":100,"swapInfo":{"label":"Meteora"}},
				{"percent":100,"swapInfo":{"label":"Orca"}}
			]
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpx.New(2*time.Second, 0), "test-key").WithBaseURL(srv.URL)
	req := swap.QuoteRequest{InputMint: solMint, OutputMint: usdcMint, Amount: 2_000_000, SlippageBps: 75}
	raw, err := c.GetQuote(context.Background(), req)
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	q, err := swap.ParseQuote(req, raw)
	if err != nil {
		t.Fatalf("ParseQuote failed: %v", err)
	}
	if q.OutAmount != 1_995_000 {
		t.Fatalf("unexpected amount out: %d", q.OutAmount)
	}
	if q.PriceImpactPct != 0.13 {
		t.Fatalf("unexpected price impact: %f", q.PriceImpactPct)
	}
	if got := q.RouteLabel("jupiter"); got != "Meteora > Orca" {
		t.Fatalf("unexpected route: %s", got)
	}
}

func TestNewPicksBaseByKey(t *testing.T) {
	if c := New(httpx.New(time.Second, 0), ""); c.baseURL != defaultLiteBase {
		t.Fatalf("expected lite base without key, got %s", c.baseURL)
	}
	if c := New(httpx.New(time.Second, 0), " key "); c.baseURL != defaultProBase || c.apiKey != "key" {
		t.Fatalf("expected pro base with trimmed key, got %s %q", c.baseURL, c.apiKey)
	}
}

func TestGetSwapTransactionPostsQuote(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	txBytes := []byte{1, 2, 3, 4}
	mux := http.NewServeMux()
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req["userPublicKey"] != user.String() {
			t.Errorf("unexpected user: %v", req["userPublicKey"])
		}
		if req["wrapAndUnwrapSol"] != true {
			t.Errorf("expected wrapAndUnwrapSol")
		}
		if req["prioritizationFeeLamports"] != float64(1000) {
			t.Errorf("unexpected priority fee: %v", req["prioritizationFeeLamports"])
		}
		quote, _ := req["quoteResponse"].(map[string]any)
		if quote["outAmount"] != "5" {
			t.Errorf("expected quote passed through, got %v", req["quoteResponse"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"swapTransaction":      base64.StdEncoding.EncodeToString(txBytes),
			"lastValidBlockHeight": 100,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpx.New(2*time.Second, 0), "").WithBaseURL(srv.URL).WithPriorityFee(1000)
	got, err := c.GetSwapTransaction(context.Background(), json.RawMessage(`{"outAmount":"5"}`), user)
	if err != nil {
		t.Fatalf("GetSwapTransaction failed: %v", err)
	}
	if string(got) != string(txBytes) {
		t.Fatalf("unexpected tx bytes: %v", got)
	}
}

func TestGetSwapTransactionMissingPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lastValidBlockHeight":1}`))
	}))
	defer srv.Close()

	c := New(httpx.New(2*time.Second, 0), "").WithBaseURL(srv.URL)
	_, err := c.GetSwapTransaction(context.Background(), json.RawMessage(`{}`), solana.NewWallet().PublicKey())
	if code := clierr.ExitCode(err); code != int(clierr.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %d (%v)", code, err)
	}
}
