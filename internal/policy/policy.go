// Package policy decides which commands a run may execute.
package policy

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/solw/internal/errors"
)

// Policy combines the --enable-commands allowlist with read-only mode.
// The zero value allows everything.
type Policy struct {
	// Allow lists command paths or groups ("swap" covers "swap run").
	Allow []string
	// ReadOnly blocks every command that signs a transaction.
	ReadOnly bool
}

// Check reports a CodeBlocked error when commandPath may not run.
func (p Policy) Check(commandPath string, mutates bool) error {
	path := normalize(commandPath)
	if p.ReadOnly && mutates {
		return clierr.New(clierr.CodeBlocked, fmt.Sprintf("%s signs transactions and is blocked in read-only mode", path))
	}
	if !p.allows(path) {
		return clierr.New(clierr.CodeBlocked, fmt.Sprintf("%s is blocked by --enable-commands policy", path))
	}
	return nil
}

func (p Policy) allows(path string) bool {
	empty := true
	for _, entry := range p.Allow {
		a := normalize(entry)
		if a == "" {
			continue
		}
		empty = false
		if a == path || strings.HasPrefix(path, a+" ") {
			return true
		}
	}
	return empty
}

func normalize(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}
