package policy

import (
	"testing"

	clierr "github.com/ggonzalez94/solw/internal/errors"
)

func TestPolicyAllowlist(t *testing.T) {
	cases := []struct {
		allow   []string
		path    string
		allowed bool
	}{
		{nil, "swap run", true},
		{[]string{"", " "}, "swap run", true},
		{[]string{"swap quote"}, "swap quote", true},
		{[]string{"balance"}, "swap run", false},
		{[]string{" Wallet "}, "wallet show", true},
		{[]string{"wrap"}, "wrapper", false},
		{[]string{"swap quote"}, "swap run", false},
		{[]string{"swap"}, "swap  run", true},
	}
	for _, tc := range cases {
		err := Policy{Allow: tc.allow}.Check(tc.path, false)
		if tc.allowed && err != nil {
			t.Fatalf("allow=%v path=%q: unexpected error %v", tc.allow, tc.path, err)
		}
		if !tc.allowed && !clierr.HasCode(err, clierr.CodeBlocked) {
			t.Fatalf("allow=%v path=%q: expected blocked error, got %v", tc.allow, tc.path, err)
		}
	}
}

func TestPolicyReadOnlyBlocksSigningCommands(t *testing.T) {
	p := Policy{ReadOnly: true}
	if err := p.Check("balance", false); err != nil {
		t.Fatalf("expected reads to pass in read-only mode: %v", err)
	}
	if err := p.Check("wrap", true); !clierr.HasCode(err, clierr.CodeBlocked) {
		t.Fatalf("expected wrap to be blocked, got %v", err)
	}
	p.Allow = []string{"wrap"}
	if err := p.Check("wrap", true); !clierr.HasCode(err, clierr.CodeBlocked) {
		t.Fatalf("expected read-only to win over the allowlist, got %v", err)
	}
}
