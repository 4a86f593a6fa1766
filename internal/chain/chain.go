// Package chain is the narrow view of a Solana RPC node used by the
// orchestrators, and its solana-go backed implementation.
package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// AccountInfo is the subset of account state the orchestrators inspect.
type AccountInfo struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// TokenAmount is an SPL token balance in base units.
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}

// TokenHolding is one SPL token account owned by a wallet.
type TokenHolding struct {
	Account  solana.PublicKey
	Mint     solana.PublicKey
	Amount   uint64
	Decimals uint8
}

// RPC is every network read and write the core performs. All calls use the
// commitment the implementation was configured with.
type RPC interface {
	GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	// GetAccountInfo returns nil, nil when the account does not exist.
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*AccountInfo, error)
	GetTokenAccountBalance(ctx context.Context, address solana.PublicKey) (TokenAmount, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenHolding, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// Confirm blocks until the signature reaches the configured commitment.
	Confirm(ctx context.Context, signature solana.Signature) error
}
