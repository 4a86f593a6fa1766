// Package swap validates third-party swap quotes and signs and submits the
// transactions built for them.
package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
)

const MaxSlippageBps = 10_000

type QuoteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps int
}

// QuoteService is the external price-quoting collaborator. Payloads are
// opaque to it and are passed back unchanged when asking for the
// transaction.
type QuoteService interface {
	GetQuote(ctx context.Context, req QuoteRequest) (json.RawMessage, error)
	GetSwapTransaction(ctx context.Context, quote json.RawMessage, user solana.PublicKey) ([]byte, error)
}

type Hop struct {
	Label      string
	InputMint  string
	OutputMint string
	Percent    int
}

// Quote is a validated quote. MinimumOut never exceeds OutAmount.
type Quote struct {
	InputMint            solana.PublicKey
	OutputMint           solana.PublicKey
	InAmount             uint64
	OutAmount            uint64
	MinimumOut           uint64
	OtherAmountThreshold uint64
	SlippageBps          int
	PriceImpactPct       float64
	Route                []Hop
	Raw                  json.RawMessage
}

type quotePayload struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          *int   `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
	RoutePlan            []struct {
		Percent  int `json:"percent"`
		SwapInfo struct {
			Label      string `json:"label"`
			InputMint  string `json:"inputMint"`
			OutputMint string `json:"outputMint"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// MinimumOut applies slippage to out, rounding down.
func MinimumOut(out uint64, slippageBps int) uint64 {
	if slippageBps <= 0 {
		return out
	}
	if slippageBps >= MaxSlippageBps {
		return 0
	}
	v := new(big.Int).SetUint64(out)
	v.Mul(v, big.NewInt(int64(MaxSlippageBps-slippageBps)))
	v.Quo(v, big.NewInt(MaxSlippageBps))
	return v.Uint64()
}

// ParseQuote checks a quote payload against the request it answers.
func ParseQuote(req QuoteRequest, raw json.RawMessage) (Quote, error) {
	var p quotePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeQuoteMismatch, "decode quote payload", err)
	}

	inMint, err := requiredMint("inputMint", p.InputMint)
	if err != nil {
		return Quote{}, err
	}
	outMint, err := requiredMint("outputMint", p.OutputMint)
	if err != nil {
		return Quote{}, err
	}
	if !inMint.Equals(req.InputMint) || !outMint.Equals(req.OutputMint) {
		return Quote{}, clierr.New(clierr.CodeQuoteMismatch, fmt.Sprintf(
			"quote is for %s -> %s, requested %s -> %s", inMint, outMint, req.InputMint, req.OutputMint))
	}

	inAmount, err := requiredAmount("inAmount", p.InAmount)
	if err != nil {
		return Quote{}, err
	}
	if inAmount != req.Amount {
		return Quote{}, clierr.New(clierr.CodeQuoteMismatch, fmt.Sprintf("quote input amount %d does not match requested %d", inAmount, req.Amount))
	}
	outAmount, err := requiredAmount("outAmount", p.OutAmount)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		InputMint:   inMint,
		OutputMint:  outMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		SlippageBps: req.SlippageBps,
		MinimumOut:  MinimumOut(outAmount, req.SlippageBps),
		Raw:         raw,
	}
	if p.SlippageBps != nil && *p.SlippageBps != req.SlippageBps {
		return Quote{}, clierr.New(clierr.CodeQuoteMismatch, fmt.Sprintf("quote slippage %d bps does not match requested %d bps", *p.SlippageBps, req.SlippageBps))
	}
	if strings.TrimSpace(p.OtherAmountThreshold) != "" {
		threshold, err := requiredAmount("otherAmountThreshold", p.OtherAmountThreshold)
		if err != nil {
			return Quote{}, err
		}
		if threshold > outAmount {
			return Quote{}, clierr.New(clierr.CodeQuoteMismatch, "quote minimum output exceeds its output amount")
		}
		if threshold < q.MinimumOut {
			return Quote{}, clierr.New(clierr.CodeQuoteMismatch, fmt.Sprintf("quote minimum output %d is below %d allowed by %d bps slippage", threshold, q.MinimumOut, req.SlippageBps))
		}
		q.OtherAmountThreshold = threshold
	}
	q.PriceImpactPct = parsePriceImpactPct(p.PriceImpactPct)
	for _, hop := range p.RoutePlan {
		q.Route = append(q.Route, Hop{
			Label:      strings.TrimSpace(hop.SwapInfo.Label),
			InputMint:  hop.SwapInfo.InputMint,
			OutputMint: hop.SwapInfo.OutputMint,
			Percent:    hop.Percent,
		})
	}
	return q, nil
}

// RouteLabel collapses consecutive duplicate venue labels.
func (q Quote) RouteLabel(fallback string) string {
	parts := make([]string, 0, len(q.Route))
	for _, hop := range q.Route {
		if hop.Label == "" {
			continue
		}
		if len(parts) == 0 || parts[len(parts)-1] != hop.Label {
			parts = append(parts, hop.Label)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, " > ")
}

func requiredMint(field, v string) (solana.PublicKey, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return solana.PublicKey{}, clierr.New(clierr.CodeQuoteMismatch, "quote missing "+field)
	}
	pk, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		return solana.PublicKey{}, clierr.Wrap(clierr.CodeQuoteMismatch, "quote has invalid "+field, err)
	}
	return pk, nil
}

func requiredAmount(field, v string) (uint64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, clierr.New(clierr.CodeQuoteMismatch, "quote missing "+field)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeQuoteMismatch, fmt.Sprintf("quote %s %q is not a non-negative integer", field, v), err)
	}
	return n, nil
}

func parsePriceImpactPct(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
