package id

import (
	"fmt"
	"math/big"
	"strings"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/model"
	"github.com/shopspring/decimal"
)

const (
	// LamportsPerSOL is fixed by the protocol.
	LamportsPerSOL uint64 = 1_000_000_000
	SOLDecimals    uint8  = 9
)

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// NormalizeAmount accepts exactly one of a base-unit integer or a decimal
// display amount and returns both forms.
func NormalizeAmount(baseUnits, display string, decimals uint8) (uint64, string, error) {
	baseUnits = strings.TrimSpace(baseUnits)
	display = strings.TrimSpace(display)
	if baseUnits != "" && display != "" {
		return 0, "", clierr.New(clierr.CodeUsage, "give either a display amount or a base-unit amount, not both")
	}
	if baseUnits == "" && display == "" {
		return 0, "", clierr.New(clierr.CodeUsage, "amount is required")
	}

	if baseUnits != "" {
		n, ok := new(big.Int).SetString(baseUnits, 10)
		if !ok {
			return 0, "", clierr.New(clierr.CodeUsage, "base-unit amount must be an integer string")
		}
		if n.Sign() < 0 {
			return 0, "", clierr.New(clierr.CodeUsage, "base-unit amount must be non-negative")
		}
		if n.Cmp(maxUint64) > 0 {
			return 0, "", clierr.New(clierr.CodeUsage, "base-unit amount overflows u64")
		}
		v := n.Uint64()
		return v, FormatUnits(v, decimals), nil
	}

	v, err := ParseUnits(display, decimals)
	if err != nil {
		return 0, "", err
	}
	return v, FormatUnits(v, decimals), nil
}

// ParseUnits converts a display amount like "1.25" to base units.
func ParseUnits(display string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(display))
	if err != nil {
		return 0, clierr.New(clierr.CodeUsage, "amount must be in decimal form like 1.23")
	}
	if d.IsNegative() {
		return 0, clierr.New(clierr.CodeUsage, "amount must be non-negative")
	}
	if -d.Exponent() > int32(decimals) && !d.Equal(d.Truncate(int32(decimals))) {
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}
	base := d.Shift(int32(decimals)).BigInt()
	if base.Cmp(maxUint64) > 0 {
		return 0, clierr.New(clierr.CodeUsage, "amount overflows u64 base units")
	}
	return base.Uint64(), nil
}

// FormatUnits renders base units as a trimmed decimal string.
func FormatUnits(base uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(base), -int32(decimals))
	return d.String()
}

// LamportsToSOL renders lamports as SOL.
func LamportsToSOL(lamports uint64) string {
	return FormatUnits(lamports, SOLDecimals)
}

// SOLToLamports parses a SOL display amount.
func SOLToLamports(sol string) (uint64, error) {
	return ParseUnits(sol, SOLDecimals)
}

// Amount is a base-unit quantity with its display precision.
type Amount struct {
	Base     uint64
	Decimals uint8
}

func Lamports(v uint64) Amount {
	return Amount{Base: v, Decimals: SOLDecimals}
}

func (a Amount) String() string {
	return FormatUnits(a.Base, a.Decimals)
}

func (a Amount) IsZero() bool {
	return a.Base == 0
}

func (a Amount) BaseString() string {
	return new(big.Int).SetUint64(a.Base).String()
}

// Info is the output form carrying both representations.
func (a Amount) Info() model.AmountInfo {
	return model.AmountInfo{
		AmountBaseUnits: a.BaseString(),
		AmountDecimal:   a.String(),
		Decimals:        int(a.Decimals),
	}
}
