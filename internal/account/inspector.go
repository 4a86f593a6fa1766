// Package account reads balances and derives token account addresses.
package account

import (
	"context"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/ggonzalez94/solw/internal/chain"
	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/id"
	"github.com/ggonzalez94/solw/internal/model"
)

type Inspector struct {
	rpc chain.RPC
	now func() time.Time
}

func NewInspector(rpc chain.RPC) *Inspector {
	return &Inspector{rpc: rpc, now: time.Now}
}

// NativeBalance is the owner's lamport balance.
func (i *Inspector) NativeBalance(ctx context.Context, owner solana.PublicKey) (id.Amount, error) {
	lamports, err := i.rpc.GetBalance(ctx, owner)
	if err != nil {
		return id.Amount{}, clierr.Ensure(clierr.CodeRPCUnavailable, "read native balance", err)
	}
	return id.Lamports(lamports), nil
}

// AccountExists reports absence as false, not as an error.
func (i *Inspector) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	info, err := i.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return false, clierr.Ensure(clierr.CodeRPCUnavailable, "read account info", err)
	}
	return info != nil, nil
}

// TokenBalance reads an SPL token account. A missing account is a zero
// balance.
func (i *Inspector) TokenBalance(ctx context.Context, address solana.PublicKey) (id.Amount, error) {
	exists, err := i.AccountExists(ctx, address)
	if err != nil {
		return id.Amount{}, err
	}
	if !exists {
		return id.Amount{}, nil
	}
	bal, err := i.rpc.GetTokenAccountBalance(ctx, address)
	if err != nil {
		return id.Amount{}, clierr.Ensure(clierr.CodeRPCUnavailable, "read token balance", err)
	}
	return id.Amount{Base: bal.Amount, Decimals: bal.Decimals}, nil
}

// Portfolio is built fresh on every call.
func (i *Inspector) Portfolio(ctx context.Context, owner solana.PublicKey) (model.Portfolio, error) {
	native, err := i.NativeBalance(ctx, owner)
	if err != nil {
		return model.Portfolio{}, err
	}
	holdings, err := i.rpc.GetTokenAccountsByOwner(ctx, owner)
	if err != nil {
		return model.Portfolio{}, clierr.Ensure(clierr.CodeRPCUnavailable, "list token accounts", err)
	}

	tokens := make([]model.TokenHolding, 0, len(holdings))
	for _, h := range holdings {
		amount := id.Amount{Base: h.Amount, Decimals: h.Decimals}
		item := model.TokenHolding{
			Mint:    h.Mint.String(),
			Account: h.Account.String(),
			Balance: amount.Info(),
		}
		if token, ok := id.TokenByMint(item.Mint); ok {
			item.Symbol = token.Symbol
		}
		tokens = append(tokens, item)
	}
	sort.SliceStable(tokens, func(a, b int) bool {
		ka, kb := tokens[a].Symbol != "", tokens[b].Symbol != ""
		if ka != kb {
			return ka
		}
		if tokens[a].Symbol != tokens[b].Symbol {
			return tokens[a].Symbol < tokens[b].Symbol
		}
		return tokens[a].Mint < tokens[b].Mint
	})

	return model.Portfolio{
		Owner:     owner.String(),
		Native:    native.Info(),
		Tokens:    tokens,
		FetchedAt: i.now().UTC().Format(time.RFC3339),
	}, nil
}
