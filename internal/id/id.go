package id

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	clierr "github.com/ggonzalez94/solw/internal/errors"
)

var mintPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	// NativeSOL is the pseudo-symbol for lamports held directly by a wallet.
	NativeSOL = "SOL"
)

// Token is a known SPL mint.
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Mint     string `json:"mint"`
	Decimals uint8  `json:"decimals"`
	// Known is false for mints resolved from a raw address with no registry
	// entry; Decimals is then meaningless.
	Known bool `json:"known"`
}

func (t Token) PublicKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(t.Mint)
}

// Small bootstrap registry of mainnet mints.
var tokenRegistry = []Token{
	{Symbol: "SOL", Name: "Wrapped SOL", Mint: WrappedSOLMint, Decimals: 9, Known: true},
	{Symbol: "USDC", Name: "USD Coin", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6, Known: true},
	{Symbol: "USDT", Name: "Tether USD", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6, Known: true},
	{Symbol: "RAY", Name: "Raydium", Mint: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", Decimals: 6, Known: true},
	{Symbol: "SRM", Name: "Serum", Mint: "SRMuApVNdxXokk5GT7XD5cUUgXMBCoAz2LHeuAoKWRt", Decimals: 6, Known: true},
	{Symbol: "JUP", Name: "Jupiter", Mint: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Decimals: 6, Known: true},
	{Symbol: "BONK", Name: "Bonk", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5, Known: true},
	{Symbol: "MSOL", Name: "Marinade staked SOL", Mint: "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So", Decimals: 9, Known: true},
	{Symbol: "JITOSOL", Name: "Jito staked SOL", Mint: "J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn", Decimals: 9, Known: true},
}

var tokenBySymbol = func() map[string]Token {
	out := make(map[string]Token, len(tokenRegistry)+1)
	for _, token := range tokenRegistry {
		out[token.Symbol] = token
	}
	out["WSOL"] = out["SOL"]
	return out
}()

var tokenByMint = func() map[string]Token {
	out := make(map[string]Token, len(tokenRegistry))
	for _, token := range tokenRegistry {
		out[token.Mint] = token
	}
	return out
}()

// ParseToken resolves a symbol or a base58 mint address.
func ParseToken(input string) (Token, error) {
	norm := strings.TrimSpace(input)
	if norm == "" {
		return Token{}, clierr.New(clierr.CodeUsage, "token is required")
	}
	if token, ok := tokenBySymbol[strings.ToUpper(norm)]; ok {
		return token, nil
	}
	if !mintPattern.MatchString(norm) {
		return Token{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown token symbol: %s", input))
	}
	if _, err := solana.PublicKeyFromBase58(norm); err != nil {
		return Token{}, clierr.Wrap(clierr.CodeUsage, "invalid mint address", err)
	}
	if token, ok := tokenByMint[norm]; ok {
		return token, nil
	}
	return Token{Mint: norm}, nil
}

// TokenByMint returns the registry entry for mint, if any.
func TokenByMint(mint string) (Token, bool) {
	token, ok := tokenByMint[strings.TrimSpace(mint)]
	return token, ok
}

// KnownTokens lists the registry sorted by symbol.
func KnownTokens() []Token {
	out := make([]Token, len(tokenRegistry))
	copy(out, tokenRegistry)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// IsValidAddress reports whether input decodes to a 32-byte public key.
func IsValidAddress(input string) bool {
	norm := strings.TrimSpace(input)
	if !mintPattern.MatchString(norm) {
		return false
	}
	_, err := solana.PublicKeyFromBase58(norm)
	return err == nil
}

// ParseAddress is IsValidAddress returning the key, as a usage error on failure.
func ParseAddress(input string) (solana.PublicKey, error) {
	norm := strings.TrimSpace(input)
	pk, err := solana.PublicKeyFromBase58(norm)
	if err != nil || !mintPattern.MatchString(norm) {
		return solana.PublicKey{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid address: %s", input))
	}
	return pk, nil
}
