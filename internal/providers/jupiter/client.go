// Package jupiter is the Jupiter aggregator quote service.
package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/httpx"
	"github.com/ggonzalez94/solw/internal/model"
	"github.com/ggonzalez94/solw/internal/swap"
)

const (
	defaultLiteBase = "https://lite-api.jup.ag/swap/v1"
	defaultProBase  = "https://api.jup.ag/swap/v1"
	EnvAPIKey       = "SOLW_JUPITER_API_KEY"
)

type Client struct {
	http        *httpx.Client
	baseURL     string
	apiKey      string
	priorityFee uint64
}

func New(httpClient *httpx.Client, apiKey string) *Client {
	apiKey = strings.TrimSpace(apiKey)
	baseURL := defaultLiteBase
	if apiKey != "" {
		baseURL = defaultProBase
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// WithBaseURL overrides the API root. Empty keeps the default.
func (c *Client) WithBaseURL(base string) *Client {
	if base = strings.TrimSpace(base); base != "" {
		c.baseURL = strings.TrimRight(base, "/")
	}
	return c
}

// WithPriorityFee sets the prioritization fee, in lamports, requested for
// built swap transactions. Zero lets the service decide.
func (c *Client) WithPriorityFee(lamports uint64) *Client {
	c.priorityFee = lamports
	return c
}

func (c *Client) Info() model.ProviderInfo {
	return model.ProviderInfo{
		Name:          "jupiter",
		Type:          "swap",
		RequiresKey:   false,
		KeyEnvVarName: EnvAPIKey,
		Capabilities: []string{
			"swap.quote",
			"swap.transaction",
		},
	}
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"x-api-key": c.apiKey}
}

func (c *Client) GetQuote(ctx context.Context, req swap.QuoteRequest) (json.RawMessage, error) {
	vals := url.Values{}
	vals.Set("inputMint", req.InputMint.String())
	vals.Set("outputMint", req.OutputMint.String())
	vals.Set("amount", strconv.FormatUint(req.Amount, 10))
	vals.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	vals.Set("swapMode", "ExactIn")

	endpoint := fmt.Sprintf("%s/quote?%s", strings.TrimRight(c.baseURL, "/"), vals.Encode())
	var raw json.RawMessage
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodGet, endpoint, nil, c.headers(), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports *uint64         `json:"prioritizationFeeLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// GetSwapTransaction returns the unsigned wire transaction built for quote.
func (c *Client) GetSwapTransaction(ctx context.Context, quote json.RawMessage, user solana.PublicKey) ([]byte, error) {
	body := swapRequest{
		QuoteResponse:           quote,
		UserPublicKey:           user.String(),
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	}
	if c.priorityFee > 0 {
		fee := c.priorityFee
		body.PrioritizationFeeLamports = &fee
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "encode jupiter swap request", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/swap"
	var resp swapResponse
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, endpoint, buf, c.headers(), &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.SwapTransaction) == "" {
		return nil, clierr.New(clierr.CodeUnavailable, "jupiter swap response missing transaction")
	}
	tx, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeQuoteMismatch, "decode jupiter swap transaction", err)
	}
	return tx, nil
}

var _ swap.QuoteService = (*Client)(nil)
