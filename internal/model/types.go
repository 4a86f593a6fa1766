package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Family  string `json:"family,omitempty"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string           `json:"request_id"`
	Timestamp time.Time        `json:"timestamp"`
	Command   string           `json:"command"`
	Providers []ProviderStatus `json:"providers,omitempty"`
	Cache     CacheStatus      `json:"cache"`
	Partial   bool             `json:"partial"`
}

type ProviderStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

type CacheStatus struct {
	Status string `json:"status"`
	AgeMS  int64  `json:"age_ms"`
	Stale  bool   `json:"stale"`
}

type ProviderInfo struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	RequiresKey   bool     `json:"requires_key"`
	Capabilities  []string `json:"capabilities"`
	KeyEnvVarName string   `json:"key_env_var,omitempty"`
}

type AmountInfo struct {
	AmountBaseUnits string `json:"amount_base_units"`
	AmountDecimal   string `json:"amount_decimal"`
	Decimals        int    `json:"decimals"`
}

type WalletInfo struct {
	PublicKey string `json:"public_key"`
	Source    string `json:"source,omitempty"`
	KeyFile   string `json:"key_file,omitempty"`
	Format    string `json:"format,omitempty"`
}

type Balance struct {
	Owner          string     `json:"owner"`
	Cluster        string     `json:"cluster"`
	Native         AmountInfo `json:"native"`
	WrappedAccount string     `json:"wrapped_account"`
	WrappedExists  bool       `json:"wrapped_exists"`
	Wrapped        AmountInfo `json:"wrapped"`
	FetchedAt      string     `json:"fetched_at"`
}

type TokenHolding struct {
	Mint    string     `json:"mint"`
	Symbol  string     `json:"symbol,omitempty"`
	Account string     `json:"account"`
	Balance AmountInfo `json:"balance"`
}

type Portfolio struct {
	Owner     string         `json:"owner"`
	Native    AmountInfo     `json:"native"`
	Tokens    []TokenHolding `json:"tokens"`
	FetchedAt string         `json:"fetched_at"`
}

type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

type RouteHop struct {
	Label      string `json:"label"`
	InputMint  string `json:"input_mint"`
	OutputMint string `json:"output_mint"`
	Percent    int    `json:"percent"`
}

type SwapQuote struct {
	Provider       string     `json:"provider"`
	InputMint      string     `json:"input_mint"`
	OutputMint     string     `json:"output_mint"`
	InputAmount    AmountInfo `json:"input_amount"`
	EstimatedOut   AmountInfo `json:"estimated_out"`
	MinimumOut     AmountInfo `json:"minimum_out"`
	SlippageBps    int        `json:"slippage_bps"`
	PriceImpactPct float64    `json:"price_impact_pct"`
	Route          string     `json:"route"`
	Hops           []RouteHop `json:"hops,omitempty"`
	SourceURL      string     `json:"source_url,omitempty"`
	FetchedAt      string     `json:"fetched_at"`
}
