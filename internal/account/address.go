package account

import (
	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
)

// TokenAccountRef names the associated token account of owner for mint.
type TokenAccountRef struct {
	Owner solana.PublicKey
	Mint  solana.PublicKey
}

func (r TokenAccountRef) Address() (solana.PublicKey, error) {
	return DeriveTokenAddress(r.Owner, r.Mint)
}

// DeriveTokenAddress is the associated token account PDA. Pure.
func DeriveTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, clierr.Wrap(clierr.CodeInternal, "derive associated token address", err)
	}
	return addr, nil
}

// Session memoizes derived addresses for a single orchestration call.
type Session struct {
	addrs map[TokenAccountRef]solana.PublicKey
}

func NewSession() *Session {
	return &Session{addrs: map[TokenAccountRef]solana.PublicKey{}}
}

func (s *Session) TokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ref := TokenAccountRef{Owner: owner, Mint: mint}
	if addr, ok := s.addrs[ref]; ok {
		return addr, nil
	}
	addr, err := ref.Address()
	if err != nil {
		return solana.PublicKey{}, err
	}
	s.addrs[ref] = addr
	return addr, nil
}
