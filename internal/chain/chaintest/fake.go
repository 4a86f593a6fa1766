// Package chaintest provides an in-memory chain.RPC for tests.
package chaintest

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/ggonzalez94/solw/internal/chain"
)

// Fake records every submission and serves reads from its maps.
type Fake struct {
	mu sync.Mutex

	Balances      map[solana.PublicKey]uint64
	Accounts      map[solana.PublicKey]*chain.AccountInfo
	TokenBalances map[solana.PublicKey]chain.TokenAmount
	Holdings      map[solana.PublicKey][]chain.TokenHolding
	Blockhash     solana.Hash

	BalanceErr error
	SendErr    error
	ConfirmErr error

	// OnSend runs after a transaction is recorded, outside the lock, so it
	// may apply the transaction's effects through the setters.
	OnSend func(tx *solana.Transaction)

	Sent      []*solana.Transaction
	Confirmed []solana.Signature
	Reads     int
}

func New() *Fake {
	return &Fake{
		Balances:      map[solana.PublicKey]uint64{},
		Accounts:      map[solana.PublicKey]*chain.AccountInfo{},
		TokenBalances: map[solana.PublicKey]chain.TokenAmount{},
		Holdings:      map[solana.PublicKey][]chain.TokenHolding{},
		Blockhash:     solana.Hash{1, 2, 3},
	}
}

// SetTokenAccount registers an existing token account with a balance.
func (f *Fake) SetTokenAccount(address, mint solana.PublicKey, amount uint64, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[address] = &chain.AccountInfo{Owner: solana.TokenProgramID}
	f.TokenBalances[address] = chain.TokenAmount{Amount: amount, Decimals: decimals}
}

// RemoveAccount drops an account, as closing it on chain would.
func (f *Fake) RemoveAccount(address solana.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Accounts, address)
	delete(f.TokenBalances, address)
}

func (f *Fake) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

func (f *Fake) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.BalanceErr != nil {
		return 0, f.BalanceErr
	}
	return f.Balances[owner], nil
}

func (f *Fake) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*chain.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	return f.Accounts[address], nil
}

func (f *Fake) GetTokenAccountBalance(ctx context.Context, address solana.PublicKey) (chain.TokenAmount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	return f.TokenBalances[address], nil
}

func (f *Fake) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]chain.TokenHolding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	return append([]chain.TokenHolding(nil), f.Holdings[owner]...), nil
}

func (f *Fake) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return f.Blockhash, nil
}

func (f *Fake) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	if f.SendErr != nil {
		err := f.SendErr
		f.mu.Unlock()
		return solana.Signature{}, err
	}
	f.Sent = append(f.Sent, tx)
	hook := f.OnSend
	f.mu.Unlock()

	if hook != nil {
		hook(tx)
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, nil
	}
	return tx.Signatures[0], nil
}

func (f *Fake) Confirm(ctx context.Context, signature solana.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfirmErr != nil {
		return f.ConfirmErr
	}
	f.Confirmed = append(f.Confirmed, signature)
	return nil
}

var _ chain.RPC = (*Fake)(nil)
