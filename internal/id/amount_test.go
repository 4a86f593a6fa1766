package id

import (
	"strings"
	"testing"
)

func TestNormalizeAmountBaseUnits(t *testing.T) {
	base, dec, err := NormalizeAmount("1000000", "", 6)
	if err != nil {
		t.Fatalf("NormalizeAmount failed: %v", err)
	}
	if base != 1_000_000 || dec != "1" {
		t.Fatalf("unexpected result: base=%d dec=%s", base, dec)
	}
}

func TestNormalizeAmountDecimal(t *testing.T) {
	base, dec, err := NormalizeAmount("", "1.25", 6)
	if err != nil {
		t.Fatalf("NormalizeAmount failed: %v", err)
	}
	if base != 1_250_000 || dec != "1.25" {
		t.Fatalf("unexpected result: base=%d dec=%s", base, dec)
	}
}

func TestNormalizeAmountValidation(t *testing.T) {
	_, _, err := NormalizeAmount("10", "1", 6)
	if err == nil {
		t.Fatal("expected mutual exclusivity error")
	}
	if strings.Contains(err.Error(), "--") {
		t.Fatalf("shared amount error must not name a command's flags: %v", err)
	}
	if _, _, err := NormalizeAmount("", "1.1234567", 6); err == nil {
		t.Fatal("expected precision error")
	}
	if _, _, err := NormalizeAmount("-5", "", 6); err == nil {
		t.Fatal("expected negative amount error")
	}
	if _, _, err := NormalizeAmount("18446744073709551616", "", 0); err == nil {
		t.Fatal("expected overflow error")
	}
	if got := FormatUnits(0, 6); got != "0" {
		t.Fatalf("unexpected zero format: %s", got)
	}
}

func TestLamportConversions(t *testing.T) {
	lamports, err := SOLToLamports("2.5")
	if err != nil {
		t.Fatalf("SOLToLamports failed: %v", err)
	}
	if lamports != 2_500_000_000 {
		t.Fatalf("unexpected lamports: %d", lamports)
	}
	if got := LamportsToSOL(1); got != "0.000000001" {
		t.Fatalf("unexpected SOL rendering: %s", got)
	}
	if got := Lamports(5 * LamportsPerSOL).String(); got != "5" {
		t.Fatalf("unexpected amount rendering: %s", got)
	}
	if _, err := SOLToLamports("0.0000000001"); err == nil {
		t.Fatal("expected sub-lamport precision error")
	}
}
